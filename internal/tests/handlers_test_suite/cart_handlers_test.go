package handlers_test_suite

import (
	"net/http"
	"testing"
	"time"

	handler "github.com/rogerio-castellano/cart-sync/internal/http/handlers"
	"github.com/rogerio-castellano/cart-sync/internal/models"
)

var (
	tee = models.Product{
		ID:    "tee",
		Name:  "T-Shirt",
		Price: 25,
		Sizes: []string{"S", "M"},
		Stock: models.SizedStock(map[string]int{"S": 0, "M": 2}),
	}
	mug = models.Product{ID: "mug", Name: "Mug", Price: 30, Stock: models.ScalarStock(5)}
)

func init() {
	cartService.addProduct(tee)
	cartService.addProduct(mug)
	cartService.addCoupon(models.Coupon{Code: "TEN", DiscountPercentage: 10, MinimumAmount: 50})
}

func TestGetCartHandler_Unauthorized(t *testing.T) {
	w := doRequest(http.MethodGet, "/cart", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestGetCartHandler(t *testing.T) {
	user, token := newUser(t)
	cartService.seed(user,
		models.CartItem{ID: "l1", Product: mug, Price: 30, Quantity: 2},
		models.CartItem{ID: "l2", Product: tee, Price: 25, Quantity: 1, SelectedSize: size("M")},
	)

	w := doRequest(http.MethodGet, "/cart", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}

	resp := decodeCart(t, w)
	if len(resp.Cart.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(resp.Cart.Items))
	}
	if resp.Cart.Subtotal != 85 {
		t.Errorf("expected subtotal 85, got %v", resp.Cart.Subtotal)
	}
	if resp.Cart.Total != 85 {
		t.Errorf("expected total 85, got %v", resp.Cart.Total)
	}
	if got := resp.Cart.Items[1].Product.Stock.ForSize("M"); got != 2 {
		t.Errorf("expected size M stock 2, got %d", got)
	}
}

func TestAddItemHandler(t *testing.T) {
	user, token := newUser(t)

	w := doRequest(http.MethodPost, "/cart/items", token, handler.AddItemRequest{
		Product: tee, Quantity: 2, SelectedSize: size("M"),
	})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}

	resp := decodeCart(t, w)
	if len(resp.Cart.Items) != 1 || resp.Cart.Items[0].Quantity != 2 {
		t.Fatalf("expected one line of 2, got %+v", resp.Cart.Items)
	}
	if !hasNotice(resp, models.NoticeInfo, "T-Shirt added to cart") {
		t.Errorf("expected added notice, got %+v", resp.Notices)
	}
	if cartService.addCount(user) != 1 {
		t.Errorf("expected one add call, got %d", cartService.addCount(user))
	}
}

func TestAddItemHandler_RejectedLocally(t *testing.T) {
	tests := []struct {
		name    string
		req     handler.AddItemRequest
		message string
	}{
		{"out of stock size", handler.AddItemRequest{Product: tee, Quantity: 1, SelectedSize: size("S")}, "only 0 left in stock for size S"},
		{"above stock", handler.AddItemRequest{Product: tee, Quantity: 3, SelectedSize: size("M")}, "only 2 left in stock for size M"},
		{"no size chosen", handler.AddItemRequest{Product: tee, Quantity: 1}, "please select a size"},
		{"zero quantity", handler.AddItemRequest{Product: mug, Quantity: 0}, "quantity must be at least 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, token := newUser(t)

			w := doRequest(http.MethodPost, "/cart/items", token, tt.req)
			if w.Code != http.StatusUnprocessableEntity {
				t.Fatalf("expected 422, got %d", w.Code)
			}

			resp := decodeCart(t, w)
			if resp.Error != tt.message {
				t.Errorf("expected error %q, got %q", tt.message, resp.Error)
			}
			if !hasNotice(resp, models.NoticeWarning, tt.message) {
				t.Errorf("expected warning notice %q, got %+v", tt.message, resp.Notices)
			}
			if cartService.addCount(user) != 0 {
				t.Errorf("expected no call to the cart service")
			}
		})
	}
}

func TestAddItemHandler_InvalidRequest(t *testing.T) {
	_, token := newUser(t)

	w := doRequest(http.MethodPost, "/cart/items", token, handler.AddItemRequest{
		Product: models.Product{Sizes: []string{"M"}}, Quantity: 1, SelectedSize: size("XL"),
	})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	w = doRequest(http.MethodPost, "/cart/items", token, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty body, got %d", w.Code)
	}
}

func TestAdjustQuantityHandler_DecrementNeverBlocked(t *testing.T) {
	user, token := newUser(t)
	scarce := models.Product{ID: "scarce", Name: "Scarce", Price: 10, Stock: models.ScalarStock(1)}
	cartService.seed(user, models.CartItem{ID: "l1", Product: scarce, Price: 10, Quantity: 3})

	w := doRequest(http.MethodPatch, "/cart/items/l1", token, handler.QuantityAdjustmentRequest{Delta: -1})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d: %s", w.Code, w.Body.String())
	}
	if q := decodeCart(t, w).Cart.Items[0].Quantity; q != 2 {
		t.Errorf("expected quantity 2, got %d", q)
	}

	w = doRequest(http.MethodPatch, "/cart/items/l1", token, handler.QuantityAdjustmentRequest{Delta: 1})
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected increase above stock to be rejected, got %d", w.Code)
	}
}

func TestSetQuantityHandler_ClampsAndWritesOnce(t *testing.T) {
	user, token := newUser(t)
	cartService.seed(user, models.CartItem{ID: "l1", Product: tee, Price: 25, Quantity: 1, SelectedSize: size("M")})

	w := doRequest(http.MethodPut, "/cart/items/l1", token, handler.SetQuantityRequest{Quantity: 9, Optimistic: true})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	resp := decodeCart(t, w)
	if q := resp.Cart.Items[0].Quantity; q != 2 {
		t.Errorf("expected quantity clamped to 2, got %d", q)
	}
	if !hasNotice(resp, models.NoticeWarning, "quantity adjusted to 2: only 2 left in stock for size M") {
		t.Errorf("expected clamp notice, got %+v", resp.Notices)
	}

	w = doRequest(http.MethodPost, "/cart/flush", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK on flush, got %d", w.Code)
	}
	if q, ok := cartService.writtenQuantity(user, "l1"); !ok || q != 2 {
		t.Errorf("expected quantity 2 written, got %d (written %v)", q, ok)
	}
}

func TestSetQuantityHandler_DebouncedWrite(t *testing.T) {
	user, token := newUser(t)
	cartService.seed(user, models.CartItem{ID: "l1", Product: mug, Price: 30, Quantity: 1})

	for q := 2; q <= 4; q++ {
		w := doRequest(http.MethodPut, "/cart/items/l1", token, handler.SetQuantityRequest{Quantity: q})
		if w.Code != http.StatusOK {
			t.Fatalf("expected 200 OK, got %d", w.Code)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if q, ok := cartService.writtenQuantity(user, "l1"); ok && q == 4 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("last quantity was never written")
}

func TestRemoveItemHandler(t *testing.T) {
	user, token := newUser(t)
	cartService.seed(user, models.CartItem{ID: "l1", Product: mug, Price: 30, Quantity: 1})

	w := doRequest(http.MethodDelete, "/cart/items/l1", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if n := len(decodeCart(t, w).Cart.Items); n != 0 {
		t.Errorf("expected empty cart, got %d items", n)
	}

	w = doRequest(http.MethodDelete, "/cart/items/l1", token, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for a line no longer in the cart, got %d", w.Code)
	}
}

func TestClearCartHandler(t *testing.T) {
	user, token := newUser(t)
	cartService.seed(user, models.CartItem{ID: "l1", Product: mug, Price: 30, Quantity: 1})

	w := doRequest(http.MethodDelete, "/cart", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	resp := decodeCart(t, w)
	if len(resp.Cart.Items) != 0 || resp.Cart.Total != 0 {
		t.Errorf("expected an empty cart, got %+v", resp.Cart)
	}
}
