// Package repomanager vends repositories bound to either a plain connection
// or a running transaction, and runs schema migrations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/farmtrack/internal/dbx"
	"github.com/dmitrijs2005/farmtrack/internal/server/repositories/profiles"
	"github.com/dmitrijs2005/farmtrack/internal/server/repositories/tokens"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Profiles(db dbx.DBTX) profiles.Repository
	Tokens(db dbx.DBTX) tokens.Repository
}
