// Package images provides catalog-image persistence: the image rows, their
// tag associations, and the stored feature vectors used for similarity
// search.
package images

import (
	"context"

	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

// Embedding pairs an image id with its stored feature vector.
type Embedding struct {
	ID     string
	Vector []float32
}

type Repository interface {
	// Create inserts a new image with its tag associations. Returns
	// common.ErrDuplicateName when the owner already has an image with the
	// same name.
	Create(ctx context.Context, image *models.Image) (*models.Image, error)

	// GetByID returns common.ErrNotFound when no such image exists.
	GetByID(ctx context.Context, id string) (*models.Image, error)

	// UpdateOwned atomically replaces price, quantity, and tags, but only
	// when ownerID matches. Returns common.ErrNotFound or common.ErrNotOwner.
	UpdateOwned(ctx context.Context, ownerID, id string, priceCents int64, quantity int, tags []models.TagID) error

	// DeleteOwned removes the image and its tag associations, with the same
	// ownership semantics as UpdateOwned.
	DeleteOwned(ctx context.Context, ownerID, id string) error

	// ListByTags returns images carrying every tag in tags, ordered by id.
	// An empty tag set matches the whole catalog.
	ListByTags(ctx context.Context, tags []models.TagID) ([]*models.Image, error)

	// ListEmbeddings returns the feature vectors of all images, ordered by id.
	ListEmbeddings(ctx context.Context) ([]Embedding, error)
}
