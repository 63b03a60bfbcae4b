package dbx

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// openCatalogDB gives each test an in-memory catalog with the pieces of the
// images schema the transaction tests touch.
func openCatalogDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:dbxtest?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(2)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS images (id TEXT PRIMARY KEY, name TEXT, price_cents INTEGER)`)
	require.NoError(t, err)
	_, err = db.Exec(`DELETE FROM images`)
	require.NoError(t, err)
	return db
}

func imageCount(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM images`).Scan(&n))
	return n
}

func insertImage(ctx context.Context, tx DBTX, id string) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO images(id, name, price_cents) VALUES (?, ?, ?)`, id, "boots.png", 1500)
	return err
}

func TestWithTxCommit(t *testing.T) {
	db := openCatalogDB(t)
	ctx := context.Background()

	err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
		if err := insertImage(ctx, tx, "i-1"); err != nil {
			return err
		}
		return insertImage(ctx, tx, "i-2")
	})
	require.NoError(t, err)
	require.Equal(t, 2, imageCount(t, db), "both rows commit together")
}

func TestWithTxRollsBackOnError(t *testing.T) {
	db := openCatalogDB(t)
	ctx := context.Background()

	wantErr := errors.New("tag write failed")
	err := WithTx(ctx, db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertImage(ctx, tx, "i-1"))
		return wantErr
	})
	require.ErrorIs(t, err, wantErr)
	require.Equal(t, 0, imageCount(t, db), "partial insert must not survive")
}

func TestWithTxRollsBackOnPanic(t *testing.T) {
	db := openCatalogDB(t)

	defer func() {
		require.NotNil(t, recover(), "panic should propagate")
		require.Equal(t, 0, imageCount(t, db))
	}()

	_ = WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		require.NoError(t, insertImage(ctx, tx, "i-1"))
		panic("mid-transaction failure")
	})
}

func TestWithTxBeginFailure(t *testing.T) {
	db := openCatalogDB(t)
	require.NoError(t, db.Close())

	called := false
	err := WithTx(context.Background(), db, nil, func(ctx context.Context, tx DBTX) error {
		called = true
		return nil
	})
	require.Error(t, err)
	require.False(t, called, "fn must not run when begin fails")
}
