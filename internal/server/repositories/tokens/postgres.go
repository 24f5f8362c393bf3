package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/common"
	"github.com/dmitrijs2005/farmtrack/internal/dbx"
	"github.com/dmitrijs2005/farmtrack/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX (satisfied by
// *sql.DB or *sql.Tx). Every method is a single statement.
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Register(ctx context.Context, t *models.Token) error {
	query := `
		INSERT INTO tokens (id, profile_id, token, type, expires_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	if _, err := r.db.ExecContext(ctx, query, t.ID, t.ProfileID, t.Token, string(t.Type), t.ExpiresAt); err != nil {
		if dbx.IsUniqueViolation(err) {
			return ErrDuplicateToken
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Find(ctx context.Context, token string) (*models.Token, error) {
	query := `
		SELECT id, profile_id, token, type, expires_at, created_at
		FROM tokens
		WHERE token = $1
	`
	t := &models.Token{}
	var typ string
	if err := r.db.QueryRowContext(ctx, query, token).
		Scan(&t.ID, &t.ProfileID, &t.Token, &typ, &t.ExpiresAt, &t.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	t.Type = models.TokenType(typ)
	return t, nil
}

func (r *PostgresRepository) RevokeAll(ctx context.Context, profileID string) (int64, error) {
	query := `
		DELETE FROM tokens
		WHERE profile_id = $1
	`
	return r.exec(ctx, query, profileID)
}

func (r *PostgresRepository) RevokeOne(ctx context.Context, tokenID string) (bool, error) {
	query := `
		DELETE FROM tokens
		WHERE id = $1
	`
	n, err := r.exec(ctx, query, tokenID)
	return n > 0, err
}

func (r *PostgresRepository) PurgeExpired(ctx context.Context, before time.Time) (int64, error) {
	query := `
		DELETE FROM tokens
		WHERE expires_at <= $1
	`
	return r.exec(ctx, query, before)
}

func (r *PostgresRepository) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
