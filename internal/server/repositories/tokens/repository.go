// Package tokens declares the token allow-list contract and its PostgreSQL
// implementation. A token string that is not in the store is treated as
// revoked, whatever its signature says.
package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/server/models"
)

// ErrDuplicateToken is returned by Register when the token string is
// already present.
var ErrDuplicateToken = errors.New("token already registered")

// Repository is the token allow-list.
type Repository interface {
	// Register stores t. t.ID must be the token's jti.
	Register(ctx context.Context, t *models.Token) error

	// Find looks a record up by the signed token string. It returns
	// common.ErrorNotFound when the token is not registered.
	Find(ctx context.Context, token string) (*models.Token, error)

	// RevokeAll deletes every token of profileID and returns how many were
	// removed.
	RevokeAll(ctx context.Context, profileID string) (int64, error)

	// RevokeOne deletes the record with the given id and reports whether it
	// existed.
	RevokeOne(ctx context.Context, tokenID string) (bool, error)

	// PurgeExpired deletes records whose expiry is at or before before.
	PurgeExpired(ctx context.Context, before time.Time) (int64, error)
}
