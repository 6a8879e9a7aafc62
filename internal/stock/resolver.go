// Package stock answers how many units of a product/size pair are available
// and whether a requested quantity fits. Every surface that shows or guards
// stock goes through here so they all agree on the same numbers.
package stock

import (
	"fmt"

	"github.com/rogerio-castellano/cart-sync/internal/models"
)

const (
	MsgSelectSize     = "please select a size"
	MsgQuantityTooLow = "quantity must be at least 1"
)

// Validation is the outcome of checking a requested quantity.
type Validation struct {
	IsValid        bool   `json:"isValid"`
	AvailableStock int    `json:"availableStock"`
	Message        string `json:"message,omitempty"`
}

// ResolveAvailableStock returns the units available for size of product. The
// second result is false when the product is sold in sizes and none was given:
// that is an indeterminate state, not zero stock.
func ResolveAvailableStock(p models.Product, size *string) (int, bool) {
	if !p.HasSizes() {
		return p.Stock.Scalar(), true
	}
	if size == nil {
		return 0, false
	}
	return p.Stock.ForSize(*size), true
}

// ValidateRequestedQuantity checks quantity against the resolved stock.
func ValidateRequestedQuantity(p models.Product, size *string, quantity int) Validation {
	available, ok := ResolveAvailableStock(p, size)
	if !ok {
		return Validation{Message: MsgSelectSize}
	}
	if quantity <= 0 {
		return Validation{AvailableStock: available, Message: MsgQuantityTooLow}
	}
	if quantity > available {
		return Validation{AvailableStock: available, Message: ExceedsMessage(available, size)}
	}
	return Validation{IsValid: true, AvailableStock: available}
}

// IsOutOfStock is true only when the resolved stock is exactly 0. A sized
// product with no size chosen is not out of stock.
func IsOutOfStock(p models.Product, size *string) bool {
	available, ok := ResolveAvailableStock(p, size)
	return ok && available == 0
}

// ExceedsMessage reports the ceiling a request ran into.
func ExceedsMessage(available int, size *string) string {
	if size != nil && *size != "" {
		return fmt.Sprintf("only %d left in stock for size %s", available, *size)
	}
	return fmt.Sprintf("only %d left in stock", available)
}
