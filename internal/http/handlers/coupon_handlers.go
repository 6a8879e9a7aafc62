package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/rogerio-castellano/cart-sync/internal/cart"
)

// ApplyCouponHandler godoc
// @Summary Apply a coupon
// @Description Validates the code with the cart service against the current subtotal
// @Tags coupons
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param coupon body ApplyCouponRequest true "Coupon code"
// @Success 200 {object} CartResponse
// @Failure 400 {string} string "Invalid input"
// @Failure 502 {object} CartResponse
// @Router /cart/coupon [post]
func ApplyCouponHandler(w http.ResponseWriter, r *http.Request) {
	var req ApplyCouponRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Code) == "" {
		writeJSON(w, http.StatusBadRequest, []ValidationError{{Field: "code", Description: "code is required"}})
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	res := sess.Do(r.Context(), func(ctx context.Context, st *cart.Store) error {
		return st.ApplyCoupon(ctx, req.Code)
	})
	writeResult(w, r, res)
}

// RemoveCouponHandler godoc
// @Summary Remove the coupon
// @Tags coupons
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CartResponse
// @Router /cart/coupon [delete]
func RemoveCouponHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	res := sess.Do(r.Context(), func(ctx context.Context, st *cart.Store) error {
		st.RemoveCoupon()
		return nil
	})
	writeResult(w, r, res)
}
