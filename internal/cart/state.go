package cart

import (
	"fmt"
	"slices"

	"github.com/rogerio-castellano/cart-sync/internal/models"
)

// cartState is everything the store owns. It is only touched with Store.mu held.
type cartState struct {
	items         []models.CartItem
	coupon        *models.Coupon
	couponApplied bool
	totals        models.Totals
	version       uint64
}

func (st *cartState) indexOf(key string) int {
	return slices.IndexFunc(st.items, func(i models.CartItem) bool { return i.Key() == key })
}

// recompute derives the totals from the lines and coupon. A coupon whose
// minimum is no longer met is deactivated, not dropped.
func (st *cartState) recompute() []models.Notice {
	var subtotal float64
	for _, item := range st.items {
		subtotal += item.LineTotal()
	}

	total := subtotal
	var notices []models.Notice
	if st.couponApplied && st.coupon != nil {
		if subtotal >= st.coupon.MinimumAmount {
			total = subtotal * (1 - st.coupon.DiscountPercentage/100)
		} else {
			st.couponApplied = false
			notices = append(notices, warning(fmt.Sprintf(
				"coupon %s was removed: minimum order amount of %.2f is no longer met",
				st.coupon.Code, st.coupon.MinimumAmount)))
		}
	}

	st.totals = models.Totals{Subtotal: subtotal, Total: total}
	return notices
}

func (st *cartState) snapshot() models.Snapshot {
	snap := models.Snapshot{
		Items:         slices.Clone(st.items),
		CouponApplied: st.couponApplied,
		Totals:        st.totals,
	}
	if snap.Items == nil {
		snap.Items = []models.CartItem{}
	}
	if st.coupon != nil {
		c := *st.coupon
		snap.Coupon = &c
	}
	return snap
}

// publish stamps a new version on the current state and returns its snapshot.
func (st *cartState) publish() (models.Snapshot, uint64) {
	st.version++
	return st.snapshot(), st.version
}

func (st *cartState) reset() {
	st.items = nil
	st.coupon = nil
	st.couponApplied = false
	st.totals = models.Totals{}
}
