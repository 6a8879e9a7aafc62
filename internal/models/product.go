package models

// Product is the catalog view of a product as the cart needs it: its price, the
// sizes it is sold in and how many units of each are left.
type Product struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Price float64     `json:"price"`
	Sizes []string    `json:"sizes,omitempty"`
	Stock StockLedger `json:"stock"`
}

// HasSizes reports whether a size must be chosen before stock can be resolved.
func (p Product) HasSizes() bool {
	return len(p.Sizes) > 0
}
