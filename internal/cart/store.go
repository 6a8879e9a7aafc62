// Package cart holds the in-memory cart for one shopper session. Every change
// goes through stock validation, totals are re-derived after each change, and
// remote writes are reconciled against the cart service.
package cart

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/rogerio-castellano/cart-sync/internal/cartapi"
	"github.com/rogerio-castellano/cart-sync/internal/models"
	"github.com/rogerio-castellano/cart-sync/internal/scheduler"
	"github.com/rogerio-castellano/cart-sync/internal/stock"
	"go.uber.org/zap"
)

const resyncTimeout = 10 * time.Second

// Remote is the cart service as the store needs it.
type Remote interface {
	FetchCart(ctx context.Context) ([]models.CartItem, error)
	AddItem(ctx context.Context, productID string, quantity int, size *string) error
	RemoveItem(ctx context.Context, itemID string) error
	UpdateQuantity(ctx context.Context, itemID string, quantity int) error
	FetchActiveCoupon(ctx context.Context) (*models.Coupon, error)
	ApplyCoupon(ctx context.Context, code string, subtotal float64) (models.Coupon, error)
}

// AddOptions carries the line attributes chosen on the product page.
type AddOptions struct {
	SelectedSize *string
}

// Store is the authoritative cart of one session. It is safe for concurrent
// use; no lock is held while talking to the cart service. Lock order is the
// store lock, then the scheduler's.
type Store struct {
	remote   Remote
	notifier Notifier
	logger   *zap.Logger
	sched    *scheduler.Scheduler
	onChange func(models.Snapshot)
	delay    time.Duration

	mu    sync.Mutex
	state cartState

	hookMu    sync.Mutex
	published uint64
}

type Option func(*Store)

func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithDebounce sets how long quantity changes settle before being written.
func WithDebounce(d time.Duration) Option {
	return func(s *Store) { s.delay = d }
}

// WithSnapshotHook registers fn to be called with a copy of the cart after
// every local change.
func WithSnapshotHook(fn func(models.Snapshot)) Option {
	return func(s *Store) { s.onChange = fn }
}

// New creates an empty store backed by remote.
func New(remote Remote, opts ...Option) *Store {
	s := &Store{
		remote:   remote,
		notifier: discardNotifier{},
		logger:   zap.NewNop(),
		delay:    scheduler.DefaultDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.sched = scheduler.New(s.delay, s.writeQuantity, s.quantityWriteFailed,
		scheduler.WithLogger(s.logger))
	return s
}

// Hydrate replaces the local state with a previously taken snapshot. It does
// not contact the cart service.
func (s *Store) Hydrate(snap models.Snapshot) {
	s.mu.Lock()
	s.state.items = slices.Clone(snap.Items)
	s.state.coupon = nil
	if snap.Coupon != nil {
		c := *snap.Coupon
		s.state.coupon = &c
	}
	s.state.couponApplied = snap.CouponApplied && snap.Coupon != nil
	s.state.recompute()
	s.mu.Unlock()
}

// GetCartItems reloads the cart and the active coupon from the service.
func (s *Store) GetCartItems(ctx context.Context) error {
	items, err := s.remote.FetchCart(ctx)
	if err != nil {
		s.logger.Warn("fetch cart failed", zap.Error(err))
		s.emit(failure(cartapi.UserMessage(err, "could not load your cart")))
		return err
	}

	coupon, couponErr := s.remote.FetchActiveCoupon(ctx)
	if couponErr != nil {
		s.logger.Warn("fetch active coupon failed", zap.Error(couponErr))
	}

	s.mu.Lock()
	s.state.items = s.overlayPending(items)
	if couponErr == nil {
		s.state.coupon = coupon
		s.state.couponApplied = coupon != nil
	}
	notices := s.state.recompute()
	snap, version := s.state.publish()
	s.mu.Unlock()

	s.emit(notices...)
	s.changed(snap, version)
	return nil
}

// AddToCart validates quantity against stock, asks the service to add the
// line and then reloads the cart, since the service may normalize the line.
func (s *Store) AddToCart(ctx context.Context, product models.Product, opts AddOptions, quantity int) error {
	v := stock.ValidateRequestedQuantity(product, opts.SelectedSize, quantity)
	if !v.IsValid {
		s.emit(warning(v.Message))
		return &ValidationError{Message: v.Message, AvailableStock: v.AvailableStock}
	}

	if err := s.remote.AddItem(ctx, product.ID, quantity, opts.SelectedSize); err != nil {
		s.logger.Warn("add item failed", zap.String("product_id", product.ID), zap.Error(err))
		s.emit(failure(cartapi.UserMessage(err, "could not add item to cart")))
		return err
	}
	s.emit(info(fmt.Sprintf("%s added to cart", displayName(product))))

	return s.reload(ctx)
}

// RemoveFromCart drops the line immediately and then deletes it remotely. A
// line the service no longer has is not an error.
func (s *Store) RemoveFromCart(ctx context.Context, key string) error {
	return s.mutate(ctx, mutation{
		name: "remove item",
		apply: func(st *cartState) ([]models.Notice, error) {
			idx := st.indexOf(key)
			if idx < 0 {
				return nil, ErrItemNotFound
			}
			st.items = append(st.items[:idx:idx], st.items[idx+1:]...)
			s.sched.Cancel(key)
			return []models.Notice{info("item removed from cart")}, nil
		},
		commit: func(ctx context.Context) error {
			return s.remote.RemoveItem(ctx, key)
		},
		failMsg: "could not remove item from cart",
	})
}

// UpdateQuantity applies a stepper change of delta units. Reaching zero
// removes the line. Only increases are checked against stock.
func (s *Store) UpdateQuantity(ctx context.Context, key string, delta int) error {
	return s.changeQuantity(ctx, key, func(item models.CartItem) (int, []models.Notice, error) {
		next := item.Quantity + delta
		if next > 0 && delta > 0 {
			v := stock.ValidateRequestedQuantity(item.Product, item.SelectedSize, next)
			if !v.IsValid {
				return 0, []models.Notice{warning(v.Message)},
					&ValidationError{Message: v.Message, AvailableStock: v.AvailableStock}
			}
		}
		return next, nil, nil
	})
}

// UpdateQuantityOptimistic is the entry point for manual edits. The value is
// never rejected: anything above the available stock is clamped to it (at
// least 1) with a notice, and the clamped value is what gets written.
func (s *Store) UpdateQuantityOptimistic(ctx context.Context, key string, quantity int) error {
	return s.SetQuantity(ctx, key, quantity)
}

// SetQuantity is the authoritative quantity set: it re-validates against
// stock, clamps the same way, updates the line at once and leaves the remote
// write to the debounce scheduler. Zero or less removes the line.
func (s *Store) SetQuantity(ctx context.Context, key string, quantity int) error {
	return s.changeQuantity(ctx, key, func(item models.CartItem) (int, []models.Notice, error) {
		q, notices := clampQuantity(item, quantity)
		return q, notices, nil
	})
}

// ApplyCoupon validates code with the service against the current subtotal.
func (s *Store) ApplyCoupon(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		s.emit(warning("please enter a coupon code"))
		return &ValidationError{Message: "please enter a coupon code"}
	}

	coupon, err := s.remote.ApplyCoupon(ctx, code, s.Subtotal())
	if err != nil {
		s.logger.Info("coupon rejected", zap.String("code", code), zap.Error(err))
		s.emit(failure(cartapi.UserMessage(err, "invalid coupon code")))
		return err
	}

	err = s.mutate(ctx, mutation{
		name: "apply coupon",
		apply: func(st *cartState) ([]models.Notice, error) {
			st.coupon = &coupon
			st.couponApplied = true
			return nil, nil
		},
	})
	if err == nil && s.IsCouponApplied() {
		s.emit(info(fmt.Sprintf("coupon %s applied", coupon.Code)))
	}
	return err
}

// RemoveCoupon clears the coupon.
func (s *Store) RemoveCoupon() {
	_ = s.mutate(context.Background(), mutation{
		name: "remove coupon",
		apply: func(st *cartState) ([]models.Notice, error) {
			if st.coupon == nil {
				return nil, nil
			}
			st.coupon = nil
			st.couponApplied = false
			return []models.Notice{info("coupon removed")}, nil
		},
	})
}

// ClearCart empties the local cart and drops any pending quantity writes,
// e.g. once an order has been placed.
func (s *Store) ClearCart() {
	s.sched.CancelAll()
	_ = s.mutate(context.Background(), mutation{
		name: "clear cart",
		apply: func(st *cartState) ([]models.Notice, error) {
			st.reset()
			return nil, nil
		},
	})
}

// Reset returns the store to its initial empty state for the next session.
func (s *Store) Reset() {
	s.sched.CancelAll()
	s.mu.Lock()
	s.state.reset()
	s.mu.Unlock()
}

// FlushPending writes every pending quantity change now.
func (s *Store) FlushPending(ctx context.Context) error {
	return s.sched.FlushAll(ctx)
}

// HasPendingWrite reports whether a quantity write for key is still waiting.
func (s *Store) HasPendingWrite(key string) bool {
	return s.sched.Pending(key)
}

// Close stops the debounce scheduler, discarding unwritten changes. Call
// FlushPending first to keep them.
func (s *Store) Close() {
	s.sched.Stop()
}

// Cart returns a copy of the lines.
func (s *Store) Cart() []models.CartItem {
	return s.Snapshot().Items
}

func (s *Store) Subtotal() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.totals.Subtotal
}

func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.totals.Total
}

// Coupon returns the stored coupon, applied or not.
func (s *Store) Coupon() (models.Coupon, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state.coupon == nil {
		return models.Coupon{}, false
	}
	return *s.state.coupon, true
}

func (s *Store) IsCouponApplied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.couponApplied
}

func (s *Store) Snapshot() models.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.snapshot()
}

// changeQuantity reads the line, derives its next quantity and schedules the
// write in one critical section, so concurrent changes never read a stale
// quantity. A next quantity of zero or less removes the line remotely.
func (s *Store) changeQuantity(ctx context.Context, key string,
	next func(models.CartItem) (int, []models.Notice, error)) error {
	var removed bool
	return s.mutate(ctx, mutation{
		name: "change quantity",
		apply: func(st *cartState) ([]models.Notice, error) {
			idx := st.indexOf(key)
			if idx < 0 {
				return nil, ErrItemNotFound
			}
			quantity, notices, err := next(st.items[idx])
			if err != nil {
				return notices, err
			}
			if quantity <= 0 {
				st.items = append(st.items[:idx:idx], st.items[idx+1:]...)
				s.sched.Cancel(key)
				removed = true
				return append(notices, info("item removed from cart")), nil
			}
			st.items[idx].Quantity = quantity
			s.sched.Schedule(key, quantity)
			return notices, nil
		},
		commit: func(ctx context.Context) error {
			if !removed {
				return nil
			}
			return s.remote.RemoveItem(ctx, key)
		},
		failMsg: "could not remove item from cart",
	})
}

func (s *Store) writeQuantity(ctx context.Context, key string, quantity int) error {
	return s.remote.UpdateQuantity(ctx, key, quantity)
}

func (s *Store) quantityWriteFailed(key string, quantity int, err error) {
	s.emit(failure(cartapi.UserMessage(err, "could not update quantity")))
	ctx, cancel := context.WithTimeout(context.Background(), resyncTimeout)
	defer cancel()
	s.resync(ctx)
}

// reload replaces the lines with the service's view, keeping coupon state.
func (s *Store) reload(ctx context.Context) error {
	items, err := s.remote.FetchCart(ctx)
	if err != nil {
		s.logger.Warn("reload cart failed", zap.Error(err))
		s.emit(failure(cartapi.UserMessage(err, "could not refresh your cart")))
		return err
	}

	s.mu.Lock()
	s.state.items = s.overlayPending(items)
	notices := s.state.recompute()
	snap, version := s.state.publish()
	s.mu.Unlock()

	s.emit(notices...)
	s.changed(snap, version)
	return nil
}

// resync reloads after a failed write. The write failure has already been
// reported, so a failed reload is only logged.
func (s *Store) resync(ctx context.Context) {
	items, err := s.remote.FetchCart(ctx)
	if err != nil {
		s.logger.Error("resynchronize cart failed", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.state.items = s.overlayPending(items)
	notices := s.state.recompute()
	snap, version := s.state.publish()
	s.mu.Unlock()

	s.emit(notices...)
	s.changed(snap, version)
}

// overlayPending keeps quantities the shopper changed but that are still
// waiting to be written, so a reload does not flash back to the old value.
func (s *Store) overlayPending(items []models.CartItem) []models.CartItem {
	for i := range items {
		if q, ok := s.sched.PendingQuantity(items[i].Key()); ok {
			items[i].Quantity = q
		}
	}
	return items
}

func (s *Store) emit(notices ...models.Notice) {
	for _, n := range notices {
		s.notifier.Notify(n)
	}
}

// changed hands snap to the snapshot hook. Hook calls are serialized and a
// snapshot older than one already delivered is dropped, so the hook always
// ends on the latest cart.
func (s *Store) changed(snap models.Snapshot, version uint64) {
	if s.onChange == nil {
		return
	}
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	if version <= s.published {
		return
	}
	s.published = version
	s.onChange(snap)
}

// clampQuantity caps quantity at the line's available stock, never below 1,
// with a notice when it had to. Lines whose stock cannot be resolved (no size
// chosen) are left alone.
func clampQuantity(item models.CartItem, quantity int) (int, []models.Notice) {
	available, ok := stock.ResolveAvailableStock(item.Product, item.SelectedSize)
	if !ok || quantity <= available {
		return quantity, nil
	}
	clamped := max(1, available)
	if clamped == quantity {
		return quantity, nil
	}
	return clamped, []models.Notice{warning(fmt.Sprintf("quantity adjusted to %d: %s",
		clamped, stock.ExceedsMessage(available, item.SelectedSize)))}
}

func displayName(p models.Product) string {
	if p.Name != "" {
		return p.Name
	}
	return "item"
}
