package images

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/dbx"
	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

const pgUniqueViolation = "23505"

// PostgresRepository implements image storage over *sql.DB. Unlike the
// simpler repositories it binds the full DB handle, because ownership-
// checked writes run inside their own transaction.
type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, image *models.Image) (*models.Image, error) {
	err := dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		query := `
			INSERT INTO images (id, owner_id, name, price_cents, quantity, embedding)
			VALUES ($1, $2, $3, $4, $5, $6)
			RETURNING created_at
		`
		err := tx.QueryRowContext(ctx, query,
			image.ID, image.OwnerID, image.Name, image.PriceCents, image.Quantity,
			models.EncodeEmbedding(image.Embedding)).Scan(&image.CreatedAt)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
				return common.ErrDuplicateName
			}
			return dbx.WrapErr(err)
		}
		return insertTags(ctx, tx, image.ID, image.Tags)
	})
	if err != nil {
		return nil, err
	}
	return image, nil
}

func insertTags(ctx context.Context, tx dbx.DBTX, imageID string, tags []models.TagID) error {
	for _, tag := range tags {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO image_tags (image_id, tag_id) VALUES ($1, $2)`, imageID, int(tag))
		if err != nil {
			return dbx.WrapErr(err)
		}
	}
	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Image, error) {
	query := `
		SELECT id, owner_id, name, price_cents, quantity, embedding, created_at FROM images
		WHERE id = $1
	`
	image, err := scanImage(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, err
	}

	tagsByImage, err := r.loadTags(ctx, []string{image.ID})
	if err != nil {
		return nil, err
	}
	image.Tags = tagsByImage[image.ID]
	return image, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanImage(row rowScanner) (*models.Image, error) {
	image := &models.Image{}
	var embedding []byte
	err := row.Scan(&image.ID, &image.OwnerID, &image.Name,
		&image.PriceCents, &image.Quantity, &embedding, &image.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, dbx.WrapErr(err)
	}
	image.Embedding, err = models.DecodeEmbedding(embedding)
	if err != nil {
		return nil, dbx.WrapErr(err)
	}
	return image, nil
}

// lockOwned loads the owner of an image with a row lock, enforcing the
// not-found / not-owner distinction inside the caller's transaction.
func lockOwned(ctx context.Context, tx dbx.DBTX, ownerID, id string) error {
	var owner string
	err := tx.QueryRowContext(ctx,
		`SELECT owner_id FROM images WHERE id = $1 FOR UPDATE`, id).Scan(&owner)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return common.ErrNotFound
		}
		return dbx.WrapErr(err)
	}
	if owner != ownerID {
		return common.ErrNotOwner
	}
	return nil
}

func (r *PostgresRepository) UpdateOwned(ctx context.Context, ownerID, id string, priceCents int64, quantity int, tags []models.TagID) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := lockOwned(ctx, tx, ownerID, id); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx,
			`UPDATE images SET price_cents = $1, quantity = $2 WHERE id = $3`,
			priceCents, quantity, id)
		if err != nil {
			return dbx.WrapErr(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM image_tags WHERE image_id = $1`, id); err != nil {
			return dbx.WrapErr(err)
		}
		return insertTags(ctx, tx, id, tags)
	})
}

func (r *PostgresRepository) DeleteOwned(ctx context.Context, ownerID, id string) error {
	return dbx.WithTx(ctx, r.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := lockOwned(ctx, tx, ownerID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM image_tags WHERE image_id = $1`, id); err != nil {
			return dbx.WrapErr(err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id); err != nil {
			return dbx.WrapErr(err)
		}
		return nil
	})
}

func (r *PostgresRepository) ListByTags(ctx context.Context, tags []models.TagID) ([]*models.Image, error) {
	var rows *sql.Rows
	var err error

	if len(tags) == 0 {
		query := `
			SELECT id, owner_id, name, price_cents, quantity, embedding, created_at FROM images
			ORDER BY id
		`
		rows, err = r.db.QueryContext(ctx, query)
	} else {
		// AND semantics: an image matches only when it carries every
		// requested tag.
		placeholders := make([]string, len(tags))
		args := make([]any, 0, len(tags)+1)
		for i, tag := range tags {
			placeholders[i] = fmt.Sprintf("$%d", i+1)
			args = append(args, int(tag))
		}
		args = append(args, len(tags))
		query := fmt.Sprintf(`
			SELECT i.id, i.owner_id, i.name, i.price_cents, i.quantity, i.embedding, i.created_at
			FROM images i
			JOIN image_tags it ON it.image_id = i.id
			WHERE it.tag_id IN (%s)
			GROUP BY i.id
			HAVING COUNT(DISTINCT it.tag_id) = $%d
			ORDER BY i.id
		`, strings.Join(placeholders, ", "), len(tags)+1)
		rows, err = r.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, dbx.WrapErr(err)
	}
	defer rows.Close()

	var result []*models.Image
	var ids []string
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, image)
		ids = append(ids, image.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.WrapErr(err)
	}

	tagsByImage, err := r.loadTags(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, image := range result {
		image.Tags = tagsByImage[image.ID]
	}
	return result, nil
}

func (r *PostgresRepository) loadTags(ctx context.Context, ids []string) (map[string][]models.TagID, error) {
	out := make(map[string][]models.TagID, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]any, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = id
	}
	query := fmt.Sprintf(`
		SELECT image_id, tag_id FROM image_tags
		WHERE image_id IN (%s)
		ORDER BY image_id, tag_id
	`, strings.Join(placeholders, ", "))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dbx.WrapErr(err)
	}
	defer rows.Close()

	for rows.Next() {
		var imageID string
		var tagID int
		if err := rows.Scan(&imageID, &tagID); err != nil {
			return nil, dbx.WrapErr(err)
		}
		out[imageID] = append(out[imageID], models.TagID(tagID))
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.WrapErr(err)
	}
	return out, nil
}

func (r *PostgresRepository) ListEmbeddings(ctx context.Context) ([]Embedding, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, embedding FROM images ORDER BY id`)
	if err != nil {
		return nil, dbx.WrapErr(err)
	}
	defer rows.Close()

	var out []Embedding
	for rows.Next() {
		var e Embedding
		var blob []byte
		if err := rows.Scan(&e.ID, &blob); err != nil {
			return nil, dbx.WrapErr(err)
		}
		if e.Vector, err = models.DecodeEmbedding(blob); err != nil {
			return nil, dbx.WrapErr(err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, dbx.WrapErr(err)
	}
	return out, nil
}
