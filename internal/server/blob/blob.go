// Package blob stores the raw image bytes outside the relational catalog.
// Images are keyed by their catalog id; the relational row is the source of
// truth, the blob is payload.
package blob

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/imagevault/internal/common"
)

// Store is the blob backend contract. Implementations must tolerate
// concurrent calls for distinct keys.
type Store interface {
	// Put writes data under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns common.ErrNotFound when the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Delete removes a key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}

func errKeyNotFound(key string) error {
	return fmt.Errorf("%w: blob %q", common.ErrNotFound, key)
}
