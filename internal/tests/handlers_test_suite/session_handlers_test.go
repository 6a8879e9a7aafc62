package handlers_test_suite

import (
	"encoding/json"
	"net/http"
	"testing"

	handler "github.com/rogerio-castellano/cart-sync/internal/http/handlers"
	"github.com/rogerio-castellano/cart-sync/internal/models"
)

func TestLogoutHandler_FlushesPendingWrites(t *testing.T) {
	user, token := newUser(t)
	cartService.seed(user, models.CartItem{ID: "l1", Product: mug, Price: 30, Quantity: 1})

	doRequest(http.MethodPut, "/cart/items/l1", token, handler.SetQuantityRequest{Quantity: 3})

	w := doRequest(http.MethodPost, "/session/logout", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	if q, ok := cartService.writtenQuantity(user, "l1"); !ok || q != 3 {
		t.Errorf("expected quantity 3 written on logout, got %d (written %v)", q, ok)
	}
}

func TestHealthHandler(t *testing.T) {
	w := doRequest(http.MethodGet, "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 OK, got %d", w.Code)
	}
	var resp handler.HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status ok, got %q", resp.Status)
	}
}

func TestStockCheckHandler(t *testing.T) {
	tests := []struct {
		name          string
		req           handler.StockCheckRequest
		valid         bool
		available     int
		indeterminate bool
		outOfStock    bool
	}{
		{"fits", handler.StockCheckRequest{Product: tee, SelectedSize: size("M"), Quantity: 2}, true, 2, false, false},
		{"too many", handler.StockCheckRequest{Product: tee, SelectedSize: size("M"), Quantity: 3}, false, 2, false, false},
		{"sold out size", handler.StockCheckRequest{Product: tee, SelectedSize: size("S"), Quantity: 1}, false, 0, false, true},
		{"size missing", handler.StockCheckRequest{Product: tee, Quantity: 1}, false, 0, true, false},
		{"scalar", handler.StockCheckRequest{Product: mug, Quantity: 5}, true, 5, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(http.MethodPost, "/stock/check", "", tt.req)
			if w.Code != http.StatusOK {
				t.Fatalf("expected 200 OK, got %d", w.Code)
			}
			var resp handler.StockCheckResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode: %v", err)
			}
			if resp.IsValid != tt.valid {
				t.Errorf("expected valid %v, got %v (%s)", tt.valid, resp.IsValid, resp.Message)
			}
			if resp.AvailableStock != tt.available {
				t.Errorf("expected available %d, got %d", tt.available, resp.AvailableStock)
			}
			if resp.Indeterminate != tt.indeterminate {
				t.Errorf("expected indeterminate %v, got %v", tt.indeterminate, resp.Indeterminate)
			}
			if resp.OutOfStock != tt.outOfStock {
				t.Errorf("expected out of stock %v, got %v", tt.outOfStock, resp.OutOfStock)
			}
		})
	}
}
