package session

import (
	"sort"

	"github.com/dmitrijs2005/imagevault/internal/server/models"
)

// cart is the session-local shopping cart: image id to requested quantity,
// every quantity >= 1. It is owned by one session goroutine.
type cart struct {
	lines map[string]int
}

func newCart() *cart {
	return &cart{lines: make(map[string]int)}
}

func (c *cart) get(imageID string) int {
	return c.lines[imageID]
}

// set stores a line; quantity 0 removes it.
func (c *cart) set(imageID string, quantity int) {
	if quantity == 0 {
		delete(c.lines, imageID)
		return
	}
	c.lines[imageID] = quantity
}

func (c *cart) remove(imageID string) bool {
	if _, ok := c.lines[imageID]; !ok {
		return false
	}
	delete(c.lines, imageID)
	return true
}

// items returns the cart lines ordered by image id.
func (c *cart) items() []models.CartItem {
	out := make([]models.CartItem, 0, len(c.lines))
	for id, q := range c.lines {
		out = append(out, models.CartItem{ImageID: id, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ImageID < out[j].ImageID })
	return out
}
