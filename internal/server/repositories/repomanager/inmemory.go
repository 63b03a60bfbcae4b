package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/imagevault/internal/server/repositories/carts"
	"github.com/dmitrijs2005/imagevault/internal/server/repositories/images"
	"github.com/dmitrijs2005/imagevault/internal/server/repositories/users"
)

// InMemoryRepositoryManager backs all repositories with process memory.
// Used by tests and by deployments that do not need durability.
type InMemoryRepositoryManager struct {
	users  users.Repository
	images images.Repository
	carts  carts.Repository
}

func (m *InMemoryRepositoryManager) Conn() *sql.DB {
	return nil
}

func (m *InMemoryRepositoryManager) RunMigrations(ctx context.Context) error {
	return nil
}

func (m *InMemoryRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *InMemoryRepositoryManager) Images() images.Repository {
	return m.images
}

func (m *InMemoryRepositoryManager) Carts() carts.Repository {
	return m.carts
}

func (m *InMemoryRepositoryManager) Close() error {
	return nil
}

func NewInMemoryRepositoryManager() RepositoryManager {
	return &InMemoryRepositoryManager{
		users:  users.NewInMemoryRepository(),
		images: images.NewInMemoryRepository(),
		carts:  carts.NewInMemoryRepository(),
	}
}
