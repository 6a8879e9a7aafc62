package handlers_test_suite

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rogerio-castellano/cart-sync/internal/auth"
	"github.com/rogerio-castellano/cart-sync/internal/cart"
	"github.com/rogerio-castellano/cart-sync/internal/cartapi"
	handler "github.com/rogerio-castellano/cart-sync/internal/http/handlers"
	"github.com/rogerio-castellano/cart-sync/internal/http/router"
	"github.com/rogerio-castellano/cart-sync/internal/models"
	"github.com/rogerio-castellano/cart-sync/internal/session"
)

var (
	jwtSecret   = []byte("test-secret")
	cartService = newFakeCartService()
	registry    *session.Registry
	api         http.Handler
)

func init() {
	srv := httptest.NewServer(cartService.routes())

	client, err := cartapi.New(cartapi.Config{BaseURL: srv.URL}, nil)
	if err != nil {
		panic(fmt.Sprintf("error creating cart client: %v", err))
	}

	registry = session.NewRegistry(
		func(token string) cart.Remote { return client.WithToken(token) },
		session.NewMemorySnapshotCache(),
		session.WithDebounce(20*time.Millisecond),
	)
	handler.SetSessionRegistry(registry)

	api = router.NewRouter(router.Config{JWTSecret: jwtSecret, AllowedOrigins: []string{"*"}})
}

// fakeCartService is an in-memory cart and coupon service keyed by the
// subject of the caller's token.
type fakeCartService struct {
	mu       sync.Mutex
	catalog  map[string]models.Product
	carts    map[string][]models.CartItem
	coupons  map[string]models.Coupon
	active   map[string]*models.Coupon
	adds     map[string]int
	lastQty  map[string]int
	nextLine int
}

func newFakeCartService() *fakeCartService {
	return &fakeCartService{
		catalog: map[string]models.Product{},
		carts:   map[string][]models.CartItem{},
		coupons: map[string]models.Coupon{},
		active:  map[string]*models.Coupon{},
		adds:    map[string]int{},
		lastQty: map[string]int{},
	}
}

func (f *fakeCartService) routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/cart", f.withUser(f.getCart))
	r.Post("/cart", f.withUser(f.addItem))
	r.Delete("/cart/{id}", f.withUser(f.removeItem))
	r.Put("/cart/{id}", f.withUser(f.updateItem))
	r.Get("/coupons/active", f.withUser(f.activeCoupon))
	r.Post("/coupons/apply", f.withUser(f.applyCoupon))
	return r
}

func (f *fakeCartService) withUser(h func(w http.ResponseWriter, r *http.Request, user string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, err := auth.BearerToken(r.Header.Get("Authorization"))
		if err != nil {
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		sess, err := auth.ParseToken(jwtSecret, token)
		if err != nil {
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		h(w, r, sess.UserID)
	}
}

func reply(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

func (f *fakeCartService) getCart(w http.ResponseWriter, r *http.Request, user string) {
	items := f.carts[user]
	if items == nil {
		items = []models.CartItem{}
	}
	reply(w, http.StatusOK, map[string]any{"items": items})
}

func (f *fakeCartService) addItem(w http.ResponseWriter, r *http.Request, user string) {
	var req struct {
		ProductID string  `json:"productId"`
		Quantity  int     `json:"quantity"`
		Size      *string `json:"size"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reply(w, http.StatusBadRequest, map[string]string{"message": "bad request"})
		return
	}
	p, ok := f.catalog[req.ProductID]
	if !ok {
		reply(w, http.StatusNotFound, map[string]string{"message": "product not found"})
		return
	}
	f.adds[user]++
	f.nextLine++
	f.carts[user] = append(f.carts[user], models.CartItem{
		ID:           fmt.Sprintf("line-%d", f.nextLine),
		Product:      p,
		Price:        p.Price,
		Quantity:     req.Quantity,
		SelectedSize: req.Size,
	})
	reply(w, http.StatusCreated, nil)
}

func (f *fakeCartService) removeItem(w http.ResponseWriter, r *http.Request, user string) {
	id := chi.URLParam(r, "id")
	idx := slices.IndexFunc(f.carts[user], func(i models.CartItem) bool { return i.Key() == id })
	if idx < 0 {
		reply(w, http.StatusNotFound, map[string]string{"message": "item not found"})
		return
	}
	f.carts[user] = slices.Delete(f.carts[user], idx, idx+1)
	reply(w, http.StatusNoContent, nil)
}

func (f *fakeCartService) updateItem(w http.ResponseWriter, r *http.Request, user string) {
	id := chi.URLParam(r, "id")
	var req struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reply(w, http.StatusBadRequest, map[string]string{"message": "bad request"})
		return
	}
	idx := slices.IndexFunc(f.carts[user], func(i models.CartItem) bool { return i.Key() == id })
	if idx < 0 {
		reply(w, http.StatusNotFound, map[string]string{"message": "item not found"})
		return
	}
	f.carts[user][idx].Quantity = req.Quantity
	f.lastQty[user+"/"+id] = req.Quantity
	reply(w, http.StatusOK, nil)
}

func (f *fakeCartService) activeCoupon(w http.ResponseWriter, r *http.Request, user string) {
	c := f.active[user]
	if c == nil {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	reply(w, http.StatusOK, c)
}

func (f *fakeCartService) applyCoupon(w http.ResponseWriter, r *http.Request, user string) {
	var req struct {
		Code      string  `json:"code"`
		CartTotal float64 `json:"cartTotal"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		reply(w, http.StatusBadRequest, map[string]string{"message": "bad request"})
		return
	}
	c, ok := f.coupons[req.Code]
	if !ok {
		reply(w, http.StatusBadRequest, map[string]string{"message": "coupon code is not valid"})
		return
	}
	if req.CartTotal < c.MinimumAmount {
		reply(w, http.StatusBadRequest, map[string]string{"message": fmt.Sprintf("minimum order amount is %.2f", c.MinimumAmount)})
		return
	}
	f.active[user] = &c
	reply(w, http.StatusOK, map[string]any{"coupon": c})
}

func (f *fakeCartService) addProduct(p models.Product) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.catalog[p.ID] = p
}

func (f *fakeCartService) addCoupon(c models.Coupon) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.coupons[c.Code] = c
}

func (f *fakeCartService) seed(user string, items ...models.CartItem) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[user] = items
}

func (f *fakeCartService) addCount(user string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.adds[user]
}

func (f *fakeCartService) writtenQuantity(user, lineID string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.lastQty[user+"/"+lineID]
	return q, ok
}

// newUser returns a user id unique to the test and a token for it.
func newUser(t *testing.T) (string, string) {
	t.Helper()
	user := t.Name()
	token, err := auth.GenerateToken(jwtSecret, user, time.Hour)
	if err != nil {
		t.Fatalf("error generating token: %v", err)
	}
	t.Cleanup(func() { registry.Logout(context.Background(), user) })
	return user, token
}

func doRequest(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	api.ServeHTTP(w, req)
	return w
}

func decodeCart(t *testing.T, w *httptest.ResponseRecorder) handler.CartResponse {
	t.Helper()
	var resp handler.CartResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode cart response: %v (body %q)", err, w.Body.String())
	}
	return resp
}

func hasNotice(resp handler.CartResponse, level models.NoticeLevel, message string) bool {
	return slices.ContainsFunc(resp.Notices, func(n models.Notice) bool {
		return n.Level == level && n.Message == message
	})
}

func size(s string) *string { return &s }
