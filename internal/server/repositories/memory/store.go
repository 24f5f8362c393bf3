// Package memory is an in-process backend for profiles and tokens. It
// implements the same repository contracts as the PostgreSQL backend and is
// meant for development runs and tests. Nothing survives a restart.
package memory

import (
	"context"
	"database/sql"
	"errors"
	"maps"
	"sync"

	"github.com/dmitrijs2005/farmtrack/internal/dbx"
	"github.com/dmitrijs2005/farmtrack/internal/server/models"
	"github.com/dmitrijs2005/farmtrack/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/farmtrack/internal/server/repositories/tokens"
)

var errNoSQL = errors.New("memory store does not execute SQL")

// Store holds all state behind one mutex. A transaction holds the mutex for
// its whole duration, so transactions are serialized with each other and
// with plain calls.
type Store struct {
	mu       sync.Mutex
	profiles map[string]models.Profile // by id
	tokens   map[string]models.Token   // by id
}

func NewStore() *Store {
	return &Store{
		profiles: make(map[string]models.Profile),
		tokens:   make(map[string]models.Token),
	}
}

// handle is the DBTX the store hands out. Repositories only use it to tell
// whether they already run under the store lock.
type handle struct {
	inTx bool
}

func (handle) ExecContext(context.Context, string, ...any) (sql.Result, error) {
	return nil, errNoSQL
}

func (handle) QueryContext(context.Context, string, ...any) (*sql.Rows, error) {
	return nil, errNoSQL
}

func (handle) QueryRowContext(context.Context, string, ...any) *sql.Row {
	return nil
}

var (
	plainHandle = &handle{}
	txHandle    = &handle{inTx: true}
)

// Conn implements dbx.Transactor.
func (s *Store) Conn() dbx.DBTX { return plainHandle }

// WithTx implements dbx.Transactor. State is snapshotted before fn runs and
// restored if fn fails or panics.
func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context, tx dbx.DBTX) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	profiles := maps.Clone(s.profiles)
	tokens := maps.Clone(s.tokens)

	defer func() {
		if p := recover(); p != nil {
			s.profiles, s.tokens = profiles, tokens
			panic(p)
		}
		if err != nil {
			s.profiles, s.tokens = profiles, tokens
		}
	}()

	return fn(ctx, txHandle)
}

// lockFor takes the store lock unless db is the handle of a running
// transaction, which already holds it.
func (s *Store) lockFor(db dbx.DBTX) func() {
	if h, ok := db.(*handle); ok && h.inTx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// Profiles returns a profile repository bound to db, which must be a handle
// obtained from this store.
func (s *Store) Profiles(db dbx.DBTX) profiles.Repository {
	return &ProfileRepository{s: s, db: db}
}

// Tokens returns a token repository bound to db.
func (s *Store) Tokens(db dbx.DBTX) tokens.Repository {
	return &TokenRepository{s: s, db: db}
}

// RunMigrations is a no-op; the store has no schema.
func (s *Store) RunMigrations(context.Context, *sql.DB) error { return nil }
