package models

import (
	"fmt"

	"github.com/dmitrijs2005/imagevault/internal/common"
)

// CartItem is one line of a user's cart: an image reference and a requested
// quantity (always >= 1; a zero-quantity update removes the line).
type CartItem struct {
	ImageID  string
	Quantity int
}

func errUnknownTag(id int) error {
	return fmt.Errorf("%w: %d", common.ErrUnknownTag, id)
}
