package memory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/farmtrack/internal/common"
	"github.com/dmitrijs2005/farmtrack/internal/dbx"
	"github.com/dmitrijs2005/farmtrack/internal/server/models"
	"github.com/dmitrijs2005/farmtrack/internal/server/repositories/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ dbx.Transactor = (*Store)(nil)

func seedProfile(t *testing.T, s *Store, login string) *models.Profile {
	t.Helper()
	p, err := s.Profiles(s.Conn()).Create(context.Background(), &models.Profile{
		Login: login, Email: login + "@farm.io", PasswordHash: "h", Role: models.RoleUser, Active: true,
	})
	require.NoError(t, err)
	return p
}

func TestProfiles(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Profiles(s.Conn())

	p := seedProfile(t, s, "bob")
	assert.NotEmpty(t, p.ID)
	assert.False(t, p.CreatedAt.IsZero())

	_, err := repo.Create(ctx, &models.Profile{Login: "bob", Email: "other@farm.io"})
	assert.ErrorIs(t, err, common.ErrDuplicateSubject)
	_, err = repo.Create(ctx, &models.Profile{Login: "other", Email: "bob@farm.io"})
	assert.ErrorIs(t, err, common.ErrDuplicateSubject)

	got, err := repo.GetByEmail(ctx, "bob@farm.io")
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	got, err = repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.Login)

	_, err = repo.GetByEmail(ctx, "ghost@farm.io")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	_, err = repo.GetByID(ctx, "nope")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	ok, err := repo.Exists(ctx, "bob", "x@farm.io")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.Exists(ctx, "amy", "amy@farm.io")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfiles_Deactivate(t *testing.T) {
	s := NewStore()
	p := seedProfile(t, s, "bob")
	repo := s.Profiles(s.Conn())
	ctx := context.Background()

	ok, err := repo.Deactivate(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	ok, err = repo.Deactivate(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repo.Deactivate(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestProfiles_ReturnsCopies(t *testing.T) {
	s := NewStore()
	p := seedProfile(t, s, "bob")

	got, err := s.Profiles(s.Conn()).GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	got.Active = false

	again, err := s.Profiles(s.Conn()).GetByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.True(t, again.Active)
}

func TestTokens(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Tokens(s.Conn())
	p := seedProfile(t, s, "bob")
	now := time.Now()

	require.NoError(t, repo.Register(ctx, &models.Token{ID: "a", ProfileID: p.ID, Token: "tok-a", Type: models.TokenAccess, ExpiresAt: now.Add(time.Minute)}))
	require.NoError(t, repo.Register(ctx, &models.Token{ID: "r", ProfileID: p.ID, Token: "tok-r", Type: models.TokenRefresh, ExpiresAt: now.Add(time.Hour)}))

	err := repo.Register(ctx, &models.Token{ID: "dup", ProfileID: p.ID, Token: "tok-a", Type: models.TokenAccess})
	assert.ErrorIs(t, err, tokens.ErrDuplicateToken)
	err = repo.Register(ctx, &models.Token{ID: "x", ProfileID: "ghost", Token: "tok-x", Type: models.TokenAccess})
	assert.Error(t, err)

	got, err := repo.Find(ctx, "tok-r")
	require.NoError(t, err)
	assert.Equal(t, "r", got.ID)
	assert.Equal(t, models.TokenRefresh, got.Type)

	ok, err := repo.RevokeOne(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.RevokeOne(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)
	_, err = repo.Find(ctx, "tok-a")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	n, err := repo.RevokeAll(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
	n, err = repo.RevokeAll(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestTokens_PurgeExpired(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	repo := s.Tokens(s.Conn())
	p := seedProfile(t, s, "bob")
	cut := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Register(ctx, &models.Token{ID: "old", ProfileID: p.ID, Token: "old", ExpiresAt: cut.Add(-time.Second)}))
	require.NoError(t, repo.Register(ctx, &models.Token{ID: "edge", ProfileID: p.ID, Token: "edge", ExpiresAt: cut}))
	require.NoError(t, repo.Register(ctx, &models.Token{ID: "new", ProfileID: p.ID, Token: "new", ExpiresAt: cut.Add(time.Second)}))

	n, err := repo.PurgeExpired(ctx, cut)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	_, err = repo.Find(ctx, "new")
	assert.NoError(t, err)
}

func TestWithTx_CommitAndRollback(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := seedProfile(t, s, "bob")

	err := s.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		return s.Tokens(tx).Register(ctx, &models.Token{ID: "a", ProfileID: p.ID, Token: "tok-a"})
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = s.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.Tokens(tx).Register(ctx, &models.Token{ID: "b", ProfileID: p.ID, Token: "tok-b"}); err != nil {
			return err
		}
		if _, err := s.Tokens(tx).RevokeOne(ctx, "a"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	_, err = s.Tokens(s.Conn()).Find(ctx, "tok-a")
	assert.NoError(t, err, "rolled back revoke must restore the record")
	_, err = s.Tokens(s.Conn()).Find(ctx, "tok-b")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestWithTx_PanicRollsBack(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := seedProfile(t, s, "bob")

	assert.Panics(t, func() {
		_ = s.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
			_ = s.Tokens(tx).Register(ctx, &models.Token{ID: "a", ProfileID: p.ID, Token: "tok-a"})
			panic("kaboom")
		})
	})

	_, err := s.Tokens(s.Conn()).Find(ctx, "tok-a")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	// The lock must have been released.
	_, err = s.Profiles(s.Conn()).GetByID(ctx, p.ID)
	assert.NoError(t, err)
}

func TestConcurrentRegister(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	p := seedProfile(t, s, "bob")

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := string(rune('A' + i))
			_ = s.WithTx(ctx, func(ctx context.Context, tx dbx.DBTX) error {
				return s.Tokens(tx).Register(ctx, &models.Token{ID: id, ProfileID: p.ID, Token: "tok-" + id})
			})
		}()
	}
	wg.Wait()

	n, err := s.Tokens(s.Conn()).RevokeAll(ctx, p.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 50, n)
}

func TestHandle_RejectsSQL(t *testing.T) {
	s := NewStore()
	_, err := s.Conn().ExecContext(context.Background(), "SELECT 1")
	assert.Error(t, err)
	_, err = s.Conn().QueryContext(context.Background(), "SELECT 1")
	assert.Error(t, err)
	assert.NoError(t, s.RunMigrations(context.Background(), nil))
}
