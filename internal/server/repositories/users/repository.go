// Package users provides user-account persistence for the catalog.
package users

import (
	"context"

	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

type Repository interface {
	// Create inserts a new user. Returns common.ErrDuplicateUser when the
	// username is taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// GetByUsername returns common.ErrNotFound when no such user exists.
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}
