package carts

import (
	"context"
	"sort"
	"sync"

	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

// InMemoryRepository is a map-backed cart store for tests and
// single-process deployments.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byUser map[string]map[string]int // userID -> imageID -> quantity
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{byUser: make(map[string]map[string]int)}
}

func (r *InMemoryRepository) Get(ctx context.Context, userID string) ([]models.CartItem, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	items := []models.CartItem{}
	for imageID, quantity := range r.byUser[userID] {
		items = append(items, models.CartItem{ImageID: imageID, Quantity: quantity})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ImageID < items[j].ImageID })
	return items, nil
}

func (r *InMemoryRepository) Put(ctx context.Context, userID string, item models.CartItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cart, ok := r.byUser[userID]
	if !ok {
		cart = make(map[string]int)
		r.byUser[userID] = cart
	}
	cart[item.ImageID] = item.Quantity
	return nil
}

func (r *InMemoryRepository) Remove(ctx context.Context, userID, imageID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byUser[userID], imageID)
	return nil
}

func (r *InMemoryRepository) Clear(ctx context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.byUser, userID)
	return nil
}
