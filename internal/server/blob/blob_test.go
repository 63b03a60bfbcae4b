package blob

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/imagevault/internal/common"
)

func runStoreTests(t *testing.T, s Store) {
	ctx := context.Background()

	_, err := s.Get(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, s.Put(ctx, "k1", []byte("first")))
	got, err := s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("first"), got)

	require.NoError(t, s.Put(ctx, "k1", []byte("second")))
	got, err = s.Get(ctx, "k1")
	require.NoError(t, err)
	assert.Equal(t, []byte("second"), got)

	require.NoError(t, s.Delete(ctx, "k1"))
	_, err = s.Get(ctx, "k1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	// Deleting an absent key is a no-op.
	require.NoError(t, s.Delete(ctx, "k1"))
}

func TestInMemoryStore(t *testing.T) {
	runStoreTests(t, NewInMemoryStore())
}

func TestDirStore(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	runStoreTests(t, s)
}

func TestDirStoreRejectsPathKeys(t *testing.T) {
	s, err := NewDirStore(t.TempDir())
	require.NoError(t, err)

	ctx := context.Background()
	assert.Error(t, s.Put(ctx, "../escape", []byte("x")))
	assert.Error(t, s.Put(ctx, "a/b", []byte("x")))
	assert.Error(t, s.Put(ctx, "", []byte("x")))
}

func TestInMemoryStoreCopiesData(t *testing.T) {
	s := NewInMemoryStore()
	ctx := context.Background()

	data := []byte("original")
	require.NoError(t, s.Put(ctx, "k", data))
	data[0] = 'X'

	got, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), got)
}
