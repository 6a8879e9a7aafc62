package models

// CartItem is one line of the cart. A product can appear on several lines when
// it is bought in different sizes, so lines are addressed by Key, never by the
// bare product id.
type CartItem struct {
	ID           string  `json:"id,omitempty"`
	Product      Product `json:"product"`
	Price        float64 `json:"price"`
	Quantity     int     `json:"quantity"`
	SelectedSize *string `json:"selectedSize,omitempty"`
}

// Key returns the line id, falling back to the product id when the cart
// service did not assign a distinct line id.
func (i CartItem) Key() string {
	if i.ID != "" {
		return i.ID
	}
	return i.Product.ID
}

// Size returns the selected size or "" when none was chosen.
func (i CartItem) Size() string {
	if i.SelectedSize == nil {
		return ""
	}
	return *i.SelectedSize
}

// LineTotal is price times quantity.
func (i CartItem) LineTotal() float64 {
	return i.Price * float64(i.Quantity)
}

// Coupon is a percentage discount that only holds while the cart subtotal is
// at least MinimumAmount.
type Coupon struct {
	Code               string  `json:"code"`
	DiscountPercentage float64 `json:"discountPercentage"`
	MinimumAmount      float64 `json:"minimumAmount"`
}

// Totals are always derived from the lines and coupon state, never stored.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Total    float64 `json:"total"`
}

// Snapshot is a read-only copy of a cart at one point in time.
type Snapshot struct {
	Items         []CartItem `json:"items"`
	Coupon        *Coupon    `json:"coupon,omitempty"`
	CouponApplied bool       `json:"isCouponApplied"`
	Totals
}
