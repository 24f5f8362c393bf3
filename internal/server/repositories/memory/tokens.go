package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/common"
	"github.com/dmitrijs2005/farmtrack/internal/dbx"
	"github.com/dmitrijs2005/farmtrack/internal/server/models"
	"github.com/dmitrijs2005/farmtrack/internal/server/repositories/tokens"
)

// TokenRepository implements tokens.Repository over a Store.
type TokenRepository struct {
	s  *Store
	db dbx.DBTX
}

func (r *TokenRepository) Register(_ context.Context, t *models.Token) error {
	defer r.s.lockFor(r.db)()

	if _, ok := r.s.profiles[t.ProfileID]; !ok {
		return fmt.Errorf("register token: unknown profile %q", t.ProfileID)
	}
	if _, ok := r.s.tokens[t.ID]; ok {
		return tokens.ErrDuplicateToken
	}
	for _, existing := range r.s.tokens {
		if existing.Token == t.Token {
			return tokens.ErrDuplicateToken
		}
	}

	rec := *t
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	r.s.tokens[rec.ID] = rec
	return nil
}

func (r *TokenRepository) Find(_ context.Context, token string) (*models.Token, error) {
	defer r.s.lockFor(r.db)()

	for _, t := range r.s.tokens {
		if t.Token == token {
			return &t, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *TokenRepository) RevokeAll(_ context.Context, profileID string) (int64, error) {
	defer r.s.lockFor(r.db)()

	var n int64
	for id, t := range r.s.tokens {
		if t.ProfileID == profileID {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}

func (r *TokenRepository) RevokeOne(_ context.Context, tokenID string) (bool, error) {
	defer r.s.lockFor(r.db)()

	if _, ok := r.s.tokens[tokenID]; !ok {
		return false, nil
	}
	delete(r.s.tokens, tokenID)
	return true, nil
}

func (r *TokenRepository) PurgeExpired(_ context.Context, before time.Time) (int64, error) {
	defer r.s.lockFor(r.db)()

	var n int64
	for id, t := range r.s.tokens {
		if !t.ExpiresAt.After(before) {
			delete(r.s.tokens, id)
			n++
		}
	}
	return n, nil
}
