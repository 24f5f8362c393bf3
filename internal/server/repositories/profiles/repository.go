// Package profiles declares the repository contract for the accounts that can
// sign in, and its PostgreSQL implementation.
package profiles

import (
	"context"

	"github.com/dmitrijs2005/farmtrack/internal/server/models"
)

// Repository persists profiles.
type Repository interface {
	// Create inserts p and fills in ID and CreatedAt. A login or email that
	// is already taken yields common.ErrDuplicateSubject.
	Create(ctx context.Context, p *models.Profile) (*models.Profile, error)

	// GetByEmail returns common.ErrorNotFound when no profile has that email.
	GetByEmail(ctx context.Context, email string) (*models.Profile, error)

	// GetByID returns common.ErrorNotFound when the id is unknown.
	GetByID(ctx context.Context, id string) (*models.Profile, error)

	// Exists reports whether login or email is already taken.
	Exists(ctx context.Context, login, email string) (bool, error)

	// Deactivate clears the active flag and reports whether the profile
	// was active before the call.
	Deactivate(ctx context.Context, id string) (bool, error)
}
