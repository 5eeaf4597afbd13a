package repomanager

import (
	"context"
	"database/sql"

	"github.com/akrylov/authgate/internal/dbx"
	"github.com/akrylov/authgate/internal/server/repositories/tokens"
	"github.com/akrylov/authgate/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX so the same
// repository code runs against *sql.DB and inside transactions.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	Tokens(db dbx.DBTX) tokens.Repository
}
