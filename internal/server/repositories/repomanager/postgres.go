package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/dmitrijs2005/imagevault/internal/server/migrations"
	"github.com/dmitrijs2005/imagevault/internal/server/repositories/carts"
	"github.com/dmitrijs2005/imagevault/internal/server/repositories/images"
	"github.com/dmitrijs2005/imagevault/internal/server/repositories/users"
)

type PostgresRepositoryManager struct {
	db     *sql.DB
	users  users.Repository
	images images.Repository
	carts  carts.Repository
}

func (m *PostgresRepositoryManager) Conn() *sql.DB {
	return m.db
}

func (m *PostgresRepositoryManager) Users() users.Repository {
	return m.users
}

func (m *PostgresRepositoryManager) Images() images.Repository {
	return m.images
}

func (m *PostgresRepositoryManager) Carts() carts.Repository {
	return m.carts
}

func (m *PostgresRepositoryManager) RunMigrations(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)

	if err := goose.UpContext(ctx, m.db, "."); err != nil {
		return err
	}

	return nil
}

func (m *PostgresRepositoryManager) Close() error {
	return m.db.Close()
}

func NewPostgresRepositoryManager(dsn string) (RepositoryManager, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	return &PostgresRepositoryManager{
		db:     db,
		users:  users.NewPostgresRepository(db),
		images: images.NewPostgresRepository(db),
		carts:  carts.NewPostgresRepository(db),
	}, nil
}
