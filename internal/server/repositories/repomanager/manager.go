// Package repomanager wires the per-entity repositories to a shared backing
// store and selects between the postgres and in-memory implementations.
package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/imagevault/internal/server/repositories/carts"
	"github.com/dmitrijs2005/imagevault/internal/server/repositories/images"
	"github.com/dmitrijs2005/imagevault/internal/server/repositories/users"
)

type RepositoryManager interface {
	RunMigrations(context.Context) error
	Conn() *sql.DB
	Users() users.Repository
	Images() images.Repository
	Carts() carts.Repository
	Close() error
}
