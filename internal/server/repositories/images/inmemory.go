package images

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

// InMemoryRepository is a map-backed image store with the same semantics as
// the postgres implementation. The single mutex gives writes on the same
// image mutual exclusion and readers a consistent whole-row view.
type InMemoryRepository struct {
	mu     sync.RWMutex
	byID   map[string]*models.Image
	byName map[string]string // ownerID + "\x00" + name -> image id
}

func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		byID:   make(map[string]*models.Image),
		byName: make(map[string]string),
	}
}

func nameKey(ownerID, name string) string {
	return ownerID + "\x00" + name
}

func copyImage(im *models.Image) *models.Image {
	out := *im
	out.Tags = append([]models.TagID(nil), im.Tags...)
	out.Embedding = append([]float32(nil), im.Embedding...)
	return &out
}

func (r *InMemoryRepository) Create(ctx context.Context, image *models.Image) (*models.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := nameKey(image.OwnerID, image.Name)
	if _, exists := r.byName[key]; exists {
		return nil, common.ErrDuplicateName
	}

	stored := copyImage(image)
	stored.CreatedAt = time.Now().UTC()
	r.byID[stored.ID] = stored
	r.byName[key] = stored.ID

	return copyImage(stored), nil
}

func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*models.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	im, ok := r.byID[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	return copyImage(im), nil
}

func (r *InMemoryRepository) UpdateOwned(ctx context.Context, ownerID, id string, priceCents int64, quantity int, tags []models.TagID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	im, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	if im.OwnerID != ownerID {
		return common.ErrNotOwner
	}

	im.PriceCents = priceCents
	im.Quantity = quantity
	im.Tags = append([]models.TagID(nil), tags...)
	return nil
}

func (r *InMemoryRepository) DeleteOwned(ctx context.Context, ownerID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	im, ok := r.byID[id]
	if !ok {
		return common.ErrNotFound
	}
	if im.OwnerID != ownerID {
		return common.ErrNotOwner
	}

	delete(r.byID, id)
	delete(r.byName, nameKey(im.OwnerID, im.Name))
	return nil
}

func hasAllTags(im *models.Image, tags []models.TagID) bool {
	for _, want := range tags {
		found := false
		for _, have := range im.Tags {
			if have == want {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (r *InMemoryRepository) ListByTags(ctx context.Context, tags []models.TagID) ([]*models.Image, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Image
	for _, im := range r.byID {
		if hasAllTags(im, tags) {
			out = append(out, copyImage(im))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *InMemoryRepository) ListEmbeddings(ctx context.Context) ([]Embedding, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Embedding, 0, len(r.byID))
	for _, im := range r.byID {
		out = append(out, Embedding{
			ID:     im.ID,
			Vector: append([]float32(nil), im.Embedding...),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
