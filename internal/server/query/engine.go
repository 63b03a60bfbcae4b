// Package query materializes catalog queries into immutable cursors that a
// session drains batch by batch. A cursor is a snapshot: catalog writes that
// land after Start are not reflected in later batches of the same cursor.
package query

import (
	"context"
	"errors"

	"github.com/dmitrijs2005/imagevault/internal/common"
	"github.com/dmitrijs2005/imagevault/internal/server/blob"
	"github.com/dmitrijs2005/imagevault/internal/server/catalog"
	"github.com/dmitrijs2005/imagevault/internal/server/embedding"
	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

// Item is one materialized result row. Score is zero for tag browses.
type Item struct {
	ImageID    string
	Name       string
	Data       []byte
	PriceCents int64
	Quantity   int
	Tags       []models.TagID
	Score      float64
}

// Engine runs queries against the catalog and the blob store.
type Engine struct {
	store    *catalog.Store
	blobs    blob.Store
	embedder embedding.Embedder
}

func NewEngine(store *catalog.Store, blobs blob.Store, embedder embedding.Embedder) *Engine {
	return &Engine{store: store, blobs: blobs, embedder: embedder}
}

// Browse materializes all images carrying every tag in tagIDs, ordered by
// image id. An empty tag set matches the whole catalog.
func (e *Engine) Browse(ctx context.Context, tagIDs []int) (*Cursor, error) {
	imgs, err := e.store.ListImagesByTags(ctx, tagIDs)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(imgs))
	for _, img := range imgs {
		items = append(items, itemFromImage(img, 0))
	}
	return &Cursor{engine: e, items: items}, nil
}

// Search embeds imageData via the external extractor and materializes the
// whole catalog ranked by cosine similarity, best first. The embedding call
// happens before any catalog read, never under a store lock.
func (e *Engine) Search(ctx context.Context, imageData []byte, limit int) (*Cursor, error) {
	vector, err := e.embedder.Embed(ctx, imageData)
	if err != nil {
		return nil, err
	}

	matches, err := e.store.FindSimilar(ctx, vector, limit)
	if err != nil {
		return nil, err
	}

	items := make([]Item, 0, len(matches))
	for _, m := range matches {
		img, err := e.store.GetImage(ctx, m.ID)
		if err != nil {
			// The image was deleted between ranking and fetch; skip it
			// rather than failing the whole query.
			if errors.Is(err, common.ErrNotFound) {
				continue
			}
			return nil, err
		}
		items = append(items, itemFromImage(img, m.Score))
	}
	return &Cursor{engine: e, items: items}, nil
}

func itemFromImage(img *models.Image, score float64) Item {
	tags := make([]models.TagID, len(img.Tags))
	copy(tags, img.Tags)
	return Item{
		ImageID:    img.ID,
		Name:       img.Name,
		PriceCents: img.PriceCents,
		Quantity:   img.Quantity,
		Tags:       tags,
		Score:      score,
	}
}

// Cursor is an immutable materialized result with a read position. It is
// owned by a single session goroutine and is not safe for concurrent use.
type Cursor struct {
	engine *Engine
	items  []Item
	pos    int
}

// Total reports the size of the materialized result.
func (c *Cursor) Total() int {
	return len(c.items)
}

// Next returns the next at-most-batchSize items with their blob payloads and
// whether more remain. Past the end it returns (nil, false, nil). Blobs that
// vanished since materialization leave Data nil instead of failing the batch.
func (c *Cursor) Next(ctx context.Context, batchSize int) ([]Item, bool, error) {
	if batchSize <= 0 {
		batchSize = 1
	}
	if c.pos >= len(c.items) {
		return nil, false, nil
	}

	end := c.pos + batchSize
	if end > len(c.items) {
		end = len(c.items)
	}

	batch := make([]Item, end-c.pos)
	copy(batch, c.items[c.pos:end])

	// The position advances only once the whole batch is assembled, so a
	// failed fetch leaves the cursor where it was and the same batch can be
	// requested again.
	if c.engine.blobs != nil {
		for i := range batch {
			data, err := c.engine.blobs.Get(ctx, batch[i].ImageID)
			if err != nil {
				if errors.Is(err, common.ErrNotFound) {
					continue
				}
				return nil, false, err
			}
			batch[i].Data = data
		}
	}
	c.pos = end
	return batch, c.pos < len(c.items), nil
}
