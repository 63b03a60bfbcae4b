// Package carts persists shopping-cart state for deployments where carts
// survive the session that created them. With the default session-scoped
// cart policy this repository is never consulted.
package carts

import (
	"context"

	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

type Repository interface {
	// Get returns the stored cart lines for a user, ordered by image id.
	// A user with no stored cart gets an empty slice, not an error.
	Get(ctx context.Context, userID string) ([]models.CartItem, error)

	// Put inserts or replaces one cart line.
	Put(ctx context.Context, userID string, item models.CartItem) error

	// Remove deletes one cart line. Removing an absent line is a no-op.
	Remove(ctx context.Context, userID, imageID string) error

	// Clear drops a user's whole cart.
	Clear(ctx context.Context, userID string) error
}
