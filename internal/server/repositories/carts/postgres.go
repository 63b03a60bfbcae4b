package carts

import (
	"context"

	"github.com/dmitrijs2005/imagevault/internal/dbx"
	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

// PostgresRepository implements cart storage over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Get(ctx context.Context, userID string) ([]models.CartItem, error) {
	query := `
		SELECT image_id, quantity FROM cart_items
		WHERE user_id = $1
		ORDER BY image_id
	`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, dbx.WrapErr(err)
	}
	defer rows.Close()

	items := []models.CartItem{}
	for rows.Next() {
		var item models.CartItem
		if err := rows.Scan(&item.ImageID, &item.Quantity); err != nil {
			return nil, dbx.WrapErr(err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.WrapErr(err)
	}
	return items, nil
}

func (r *PostgresRepository) Put(ctx context.Context, userID string, item models.CartItem) error {
	query := `
		INSERT INTO cart_items (user_id, image_id, quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, image_id)
		DO UPDATE SET quantity = EXCLUDED.quantity
	`
	if _, err := r.db.ExecContext(ctx, query, userID, item.ImageID, item.Quantity); err != nil {
		return dbx.WrapErr(err)
	}
	return nil
}

func (r *PostgresRepository) Remove(ctx context.Context, userID, imageID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1 AND image_id = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, imageID); err != nil {
		return dbx.WrapErr(err)
	}
	return nil
}

func (r *PostgresRepository) Clear(ctx context.Context, userID string) error {
	query := `DELETE FROM cart_items WHERE user_id = $1`
	if _, err := r.db.ExecContext(ctx, query, userID); err != nil {
		return dbx.WrapErr(err)
	}
	return nil
}
