// Package repomanager vends repositories bound to a database handle so the
// same service code can run against a pool or inside a transaction.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/talenthub/internal/dbx"
	"github.com/dmitrijs2005/talenthub/internal/server/repositories/refreshtokens"
	"github.com/dmitrijs2005/talenthub/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	RefreshTokens(db dbx.DBTX) refreshtokens.Repository
}
