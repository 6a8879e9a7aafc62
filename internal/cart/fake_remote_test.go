package cart

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"sync"

	"github.com/rogerio-castellano/cart-sync/internal/cartapi"
	"github.com/rogerio-castellano/cart-sync/internal/models"
)

type quantityWrite struct {
	key      string
	quantity int
}

// fakeRemote is an in-memory cart service.
type fakeRemote struct {
	mu     sync.Mutex
	items  []models.CartItem
	coupon *models.Coupon
	nextID int

	applyResult models.Coupon
	applyErr    error
	addErr      error
	removeErr   error
	updateErr   error
	fetchErr    error

	calls   map[string]int
	updates []quantityWrite
}

func newFakeRemote(items ...models.CartItem) *fakeRemote {
	return &fakeRemote{items: items, calls: map[string]int{}}
}

func notFound(op string) error {
	return &cartapi.APIError{Op: op, StatusCode: http.StatusNotFound, Err: cartapi.ErrNotFound}
}

func (f *fakeRemote) count(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

func (f *fakeRemote) quantityWrites() []quantityWrite {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.updates)
}

func (f *fakeRemote) setUpdateErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updateErr = err
}

func (f *fakeRemote) FetchCart(context.Context) ([]models.CartItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["fetch"]++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return slices.Clone(f.items), nil
}

func (f *fakeRemote) AddItem(_ context.Context, productID string, quantity int, size *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["add"]++
	if f.addErr != nil {
		return f.addErr
	}
	f.nextID++
	f.items = append(f.items, models.CartItem{
		ID:           fmt.Sprintf("srv-%d", f.nextID),
		Product:      models.Product{ID: productID},
		Quantity:     quantity,
		SelectedSize: size,
	})
	return nil
}

func (f *fakeRemote) RemoveItem(_ context.Context, itemID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["remove"]++
	if f.removeErr != nil {
		return f.removeErr
	}
	idx := slices.IndexFunc(f.items, func(i models.CartItem) bool { return i.Key() == itemID })
	if idx < 0 {
		return notFound("remove item")
	}
	f.items = slices.Delete(f.items, idx, idx+1)
	return nil
}

func (f *fakeRemote) UpdateQuantity(_ context.Context, itemID string, quantity int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["update"]++
	f.updates = append(f.updates, quantityWrite{itemID, quantity})
	if f.updateErr != nil {
		return f.updateErr
	}
	idx := slices.IndexFunc(f.items, func(i models.CartItem) bool { return i.Key() == itemID })
	if idx < 0 {
		return notFound("update quantity")
	}
	f.items[idx].Quantity = quantity
	return nil
}

func (f *fakeRemote) FetchActiveCoupon(context.Context) (*models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["coupon"]++
	return f.coupon, nil
}

func (f *fakeRemote) ApplyCoupon(context.Context, string, float64) (models.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls["apply"]++
	if f.applyErr != nil {
		return models.Coupon{}, f.applyErr
	}
	c := f.applyResult
	f.coupon = &c
	return c, nil
}
