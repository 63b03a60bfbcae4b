// Package catalog contains the server-side business logic: account
// management, image lifecycle, tag browsing, and similarity search. All
// operations go through the repository interfaces, so the same Store serves
// both the postgres and the in-memory backends.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/server/embedding"
	"github.com/dmitrijs2005/imagevault/internal/server/models"
	"github.com/dmitrijs2005/imagevault/internal/server/repositories/repomanager"
)

const saltSize = 16

// Store provides all catalog operations. It is safe for concurrent use by
// multiple sessions; consistency under concurrency is the responsibility of
// the underlying repositories.
type Store struct {
	repomanager repomanager.RepositoryManager
	hasher      Hasher
}

// NewStore constructs a Store over the given repositories.
func NewStore(m repomanager.RepositoryManager, hasher Hasher) *Store {
	if hasher == nil {
		hasher = Argon2Hasher{}
	}
	return &Store{repomanager: m, hasher: hasher}
}

// CreateUser registers a new account. The password is hashed with a fresh
// per-user salt and never stored in the clear.
func (s *Store) CreateUser(ctx context.Context, username, password string) (*models.User, error) {
	if username == "" || password == "" {
		return nil, fmt.Errorf("%w: empty username or password", common.ErrBadCredential)
	}

	salt := common.GenerateRandByteArray(saltSize)
	pw := []byte(password)
	hash := s.hasher.Hash(pw, salt)
	common.WipeByteArray(pw)

	user := &models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Salt:         salt,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	return s.repomanager.Users().Create(ctx, user)
}

// VerifyUser checks a username/password pair. An unknown username and a
// wrong password are indistinguishable to the caller: both return
// common.ErrBadCredential.
func (s *Store) VerifyUser(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repomanager.Users().GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			// Burn a hash anyway so the two failure modes take similar time.
			s.hasher.Hash([]byte(password), make([]byte, saltSize))
			return nil, common.ErrBadCredential
		}
		return nil, err
	}

	pw := []byte(password)
	hash := s.hasher.Hash(pw, user.Salt)
	common.WipeByteArray(pw)
	if !hashesEqual(hash, user.PasswordHash) {
		return nil, common.ErrBadCredential
	}
	return user, nil
}

// AddImage stores a new catalog item for ownerID. Tag ids are validated
// against the fixed vocabulary; the embedding is stored as given.
func (s *Store) AddImage(ctx context.Context, ownerID, name string, priceCents int64, quantity int, tagIDs []int, vector []float32) (*models.Image, error) {
	tags, err := models.ValidateTags(tagIDs)
	if err != nil {
		return nil, err
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty image name", common.ErrInvalidArgument)
	}
	if priceCents < 0 || quantity < 0 {
		return nil, fmt.Errorf("%w: negative price or quantity", common.ErrInvalidArgument)
	}

	image := &models.Image{
		ID:         uuid.NewString(),
		OwnerID:    ownerID,
		Name:       name,
		PriceCents: priceCents,
		Quantity:   quantity,
		Tags:       tags,
		Embedding:  vector,
		CreatedAt:  time.Now().UTC(),
	}
	return s.repomanager.Images().Create(ctx, image)
}

// GetImage fetches one image by id.
func (s *Store) GetImage(ctx context.Context, id string) (*models.Image, error) {
	return s.repomanager.Images().GetByID(ctx, id)
}

// UpdateImage replaces the mutable fields of an image, enforcing ownership.
func (s *Store) UpdateImage(ctx context.Context, ownerID, id string, priceCents int64, quantity int, tagIDs []int) error {
	tags, err := models.ValidateTags(tagIDs)
	if err != nil {
		return err
	}
	if priceCents < 0 || quantity < 0 {
		return fmt.Errorf("%w: negative price or quantity", common.ErrInvalidArgument)
	}
	return s.repomanager.Images().UpdateOwned(ctx, ownerID, id, priceCents, quantity, tags)
}

// DeleteImage removes an image, enforcing ownership.
func (s *Store) DeleteImage(ctx context.Context, ownerID, id string) error {
	return s.repomanager.Images().DeleteOwned(ctx, ownerID, id)
}

// ListImagesByTags returns all images carrying every tag in tagIDs, ordered
// by id. An empty set matches the whole catalog.
func (s *Store) ListImagesByTags(ctx context.Context, tagIDs []int) ([]*models.Image, error) {
	tags, err := models.ValidateTags(tagIDs)
	if err != nil {
		return nil, err
	}
	return s.repomanager.Images().ListByTags(ctx, tags)
}

// Match is one similarity-search result.
type Match struct {
	ID    string
	Score float64
}

// FindSimilar ranks all stored images by cosine similarity to vector,
// descending, ties broken by image id ascending, and returns at most limit
// matches. limit <= 0 means no limit.
func (s *Store) FindSimilar(ctx context.Context, vector []float32, limit int) ([]Match, error) {
	embs, err := s.repomanager.Images().ListEmbeddings(ctx)
	if err != nil {
		return nil, err
	}

	matches := make([]Match, 0, len(embs))
	for _, e := range embs {
		matches = append(matches, Match{ID: e.ID, Score: embedding.Cosine(vector, e.Vector)})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// LoadCart returns a user's persisted cart lines.
func (s *Store) LoadCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	return s.repomanager.Carts().Get(ctx, userID)
}

// SaveCartItem inserts or replaces one persisted cart line.
func (s *Store) SaveCartItem(ctx context.Context, userID string, item models.CartItem) error {
	return s.repomanager.Carts().Put(ctx, userID, item)
}

// RemoveCartItem deletes one persisted cart line.
func (s *Store) RemoveCartItem(ctx context.Context, userID, imageID string) error {
	return s.repomanager.Carts().Remove(ctx, userID, imageID)
}

// ClearCart drops a user's whole persisted cart.
func (s *Store) ClearCart(ctx context.Context, userID string) error {
	return s.repomanager.Carts().Clear(ctx, userID)
}
