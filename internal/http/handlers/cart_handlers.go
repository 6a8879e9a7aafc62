package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/cart-sync/internal/cart"
)

// GetCartHandler godoc
// @Summary Load the cart
// @Description Reloads the cart and active coupon from the cart service
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CartResponse
// @Failure 401 {string} string "Unauthorized"
// @Failure 502 {object} CartResponse
// @Router /cart [get]
func GetCartHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	writeResult(w, r, sess.Reload(r.Context()))
}

// AddItemHandler godoc
// @Summary Add an item to the cart
// @Description Validates the quantity against stock and adds the line
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param item body AddItemRequest true "Product, size and quantity"
// @Success 200 {object} CartResponse
// @Failure 400 {array} ValidationError
// @Failure 422 {object} CartResponse
// @Failure 502 {object} CartResponse
// @Router /cart/items [post]
func AddItemHandler(w http.ResponseWriter, r *http.Request) {
	var req AddItemRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}

	if validationErrors := validateAddItem(req); len(validationErrors) > 0 {
		writeJSON(w, http.StatusBadRequest, validationErrors)
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	res := sess.Do(r.Context(), func(ctx context.Context, st *cart.Store) error {
		return st.AddToCart(ctx, req.Product, cart.AddOptions{SelectedSize: req.SelectedSize}, req.Quantity)
	})
	writeResult(w, r, res)
}

// RemoveItemHandler godoc
// @Summary Remove an item from the cart
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Param key path string true "Cart item key"
// @Success 200 {object} CartResponse
// @Failure 404 {object} CartResponse
// @Failure 502 {object} CartResponse
// @Router /cart/items/{key} [delete]
func RemoveItemHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	res := sess.Do(r.Context(), func(ctx context.Context, st *cart.Store) error {
		return st.RemoveFromCart(ctx, key)
	})
	writeResult(w, r, res)
}

// AdjustQuantityHandler godoc
// @Summary Step a line quantity up or down
// @Description Reaching zero removes the line. Only increases are checked against stock.
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Cart item key"
// @Param adjustment body QuantityAdjustmentRequest true "Quantity delta"
// @Success 200 {object} CartResponse
// @Failure 400 {string} string "Invalid input"
// @Failure 404 {object} CartResponse
// @Failure 422 {object} CartResponse
// @Router /cart/items/{key} [patch]
func AdjustQuantityHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req QuantityAdjustmentRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	if req.Delta == 0 {
		http.Error(w, "delta cannot be zero", http.StatusBadRequest)
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	res := sess.Do(r.Context(), func(ctx context.Context, st *cart.Store) error {
		return st.UpdateQuantity(ctx, key, req.Delta)
	})
	writeResult(w, r, res)
}

// SetQuantityHandler godoc
// @Summary Set a line quantity
// @Description Quantities above the available stock are clamped with a notice. Zero removes the line.
// @Tags cart
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param key path string true "Cart item key"
// @Param quantity body SetQuantityRequest true "New quantity"
// @Success 200 {object} CartResponse
// @Failure 400 {string} string "Invalid input"
// @Failure 404 {object} CartResponse
// @Router /cart/items/{key} [put]
func SetQuantityHandler(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	var req SetQuantityRequest
	if err := readJSON(w, r, &req); err != nil {
		http.Error(w, "invalid input", http.StatusBadRequest)
		return
	}
	if req.Quantity < 0 {
		http.Error(w, "quantity cannot be negative", http.StatusBadRequest)
		return
	}

	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	res := sess.Do(r.Context(), func(ctx context.Context, st *cart.Store) error {
		if req.Optimistic {
			return st.UpdateQuantityOptimistic(ctx, key, req.Quantity)
		}
		return st.SetQuantity(ctx, key, req.Quantity)
	})
	writeResult(w, r, res)
}

// ClearCartHandler godoc
// @Summary Clear the cart
// @Description Empties the cart kept by this service and drops pending quantity writes
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CartResponse
// @Router /cart [delete]
func ClearCartHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	res := sess.Do(r.Context(), func(ctx context.Context, st *cart.Store) error {
		st.ClearCart()
		return nil
	})
	writeResult(w, r, res)
}

// FlushHandler godoc
// @Summary Write pending quantity changes now
// @Tags cart
// @Produce json
// @Security BearerAuth
// @Success 200 {object} CartResponse
// @Failure 502 {object} CartResponse
// @Router /cart/flush [post]
func FlushHandler(w http.ResponseWriter, r *http.Request) {
	sess, ok := currentSession(w, r)
	if !ok {
		return
	}
	res := sess.Do(r.Context(), func(ctx context.Context, st *cart.Store) error {
		return st.FlushPending(ctx)
	})
	writeResult(w, r, res)
}
