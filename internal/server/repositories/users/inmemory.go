package users

import (
	"context"
	"sync"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

// InMemoryRepository is a map-backed user store with the same semantics as
// the postgres implementation. Used by tests and single-process deployments.
type InMemoryRepository struct {
	mu         sync.RWMutex
	byID       map[string]*models.User
	byUsername map[string]string
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:       make(map[string]*models.User),
		byUsername: make(map[string]string),
	}
}

func copyUser(u *models.User) *models.User {
	out := *u
	out.Salt = append([]byte(nil), u.Salt...)
	out.PasswordHash = append([]byte(nil), u.PasswordHash...)
	return &out
}

func (r *InMemoryRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byUsername[user.Username]; exists {
		return nil, common.ErrDuplicateUser
	}

	stored := copyUser(user)
	stored.CreatedAt = time.Now().UTC()
	r.byID[stored.ID] = stored
	r.byUsername[stored.Username] = stored.ID

	return copyUser(stored), nil
}

func (r *InMemoryRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byUsername[username]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyUser(r.byID[id]), nil
}
