package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/clientkeeper/internal/dbx"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/addresses"
	"github.com/dmitrijs2005/clientkeeper/internal/server/repositories/clients"
)

// RepositoryManager vends repositories bound to a DBTX, so the same code runs
// against the pool or inside a dbx.WithTx transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Clients(db dbx.DBTX) clients.Repository
	Addresses(db dbx.DBTX) addresses.Repository
}
