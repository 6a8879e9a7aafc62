package session

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/rogerio-castellano/cart-sync/internal/cart"
	"github.com/rogerio-castellano/cart-sync/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type stubRemote struct {
	mu      sync.Mutex
	token   string
	items   []models.CartItem
	updates map[string]int
	fetches int
}

func (s *stubRemote) FetchCart(context.Context) ([]models.CartItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fetches++
	return slices.Clone(s.items), nil
}

func (s *stubRemote) AddItem(context.Context, string, int, *string) error { return nil }
func (s *stubRemote) RemoveItem(context.Context, string) error            { return nil }

func (s *stubRemote) UpdateQuantity(_ context.Context, itemID string, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates[itemID] = quantity
	return nil
}

func (s *stubRemote) FetchActiveCoupon(context.Context) (*models.Coupon, error) { return nil, nil }

func (s *stubRemote) ApplyCoupon(context.Context, string, float64) (models.Coupon, error) {
	return models.Coupon{}, errors.New("not supported")
}

func (s *stubRemote) written(itemID string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.updates[itemID]
	return q, ok
}

type fixture struct {
	registry *Registry
	cache    *MemorySnapshotCache
	remotes  map[string]*stubRemote
	clock    time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		cache:   NewMemorySnapshotCache(),
		remotes: map[string]*stubRemote{},
		clock:   time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	mug := models.Product{ID: "mug", Name: "Mug", Price: 10, Stock: models.ScalarStock(5)}
	f.registry = NewRegistry(func(token string) cart.Remote {
		r := &stubRemote{
			token:   token,
			items:   []models.CartItem{{ID: "l1", Product: mug, Price: 10, Quantity: 1}},
			updates: map[string]int{},
		}
		f.remotes[token] = r
		return r
	}, f.cache,
		WithLogger(zaptest.NewLogger(t)),
		WithDebounce(time.Hour),
		withClock(func() time.Time { return f.clock }),
	)
	t.Cleanup(func() { f.registry.CloseAll(context.Background()) })
	return f
}

func TestRegistry_GetReusesSessionForSameToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.registry.Get(ctx, models.Session{UserID: "u1", Token: "t1"})
	b := f.registry.Get(ctx, models.Session{UserID: "u1", Token: "t1"})
	assert.Same(t, a, b)
	assert.Equal(t, 1, f.registry.Len())
}

func TestSession_DoLoadsOnFirstUse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess := f.registry.Get(ctx, models.Session{UserID: "u1", Token: "t1"})
	res := sess.Do(ctx, nil)
	require.NoError(t, res.Err)
	require.Len(t, res.Cart.Items, 1)
	assert.Equal(t, 10.0, res.Cart.Subtotal)

	sess.Do(ctx, nil)
	assert.Equal(t, 1, f.remotes["t1"].fetches)
}

func TestRegistry_TokenChangeFlushesOldSession(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.registry.Get(ctx, models.Session{UserID: "u1", Token: "t1"})
	res := old.Do(ctx, func(ctx context.Context, st *cart.Store) error {
		return st.SetQuantity(ctx, "l1", 3)
	})
	require.NoError(t, res.Err)
	_, written := f.remotes["t1"].written("l1")
	require.False(t, written)

	fresh := f.registry.Get(ctx, models.Session{UserID: "u1", Token: "t2"})
	assert.NotSame(t, old, fresh)

	q, written := f.remotes["t1"].written("l1")
	require.True(t, written)
	assert.Equal(t, 3, q)

	res = old.Do(ctx, nil)
	assert.ErrorIs(t, res.Err, ErrSessionClosed)
}

func TestRegistry_NewSessionStartsFromCachedSnapshot(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cached := models.Snapshot{
		Items: []models.CartItem{{ID: "cached", Product: models.Product{ID: "p"}, Price: 4, Quantity: 2}},
	}
	require.NoError(t, f.cache.Save(ctx, "u1", cached))

	sess := f.registry.Get(ctx, models.Session{UserID: "u1", Token: "t1"})
	snap := sess.store.Snapshot()
	require.Len(t, snap.Items, 1)
	assert.Equal(t, "cached", snap.Items[0].ID)
	assert.Equal(t, 8.0, snap.Subtotal)
}

func TestRegistry_ChangesAreSavedToCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess := f.registry.Get(ctx, models.Session{UserID: "u1", Token: "t1"})
	sess.Do(ctx, func(ctx context.Context, st *cart.Store) error {
		return st.SetQuantity(ctx, "l1", 4)
	})

	snap, ok, err := f.cache.Load(ctx, "u1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, snap.Items[0].Quantity)
}

func TestRegistry_LogoutFlushesAndForgets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	sess := f.registry.Get(ctx, models.Session{UserID: "u1", Token: "t1"})
	sess.Do(ctx, func(ctx context.Context, st *cart.Store) error {
		return st.SetQuantity(ctx, "l1", 2)
	})

	require.NoError(t, f.registry.Logout(ctx, "u1"))

	q, ok := f.remotes["t1"].written("l1")
	require.True(t, ok)
	assert.Equal(t, 2, q)
	assert.Equal(t, 0, f.registry.Len())

	_, cached, _ := f.cache.Load(ctx, "u1")
	assert.False(t, cached)
}

func TestRegistry_SweepIdle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.registry.Get(ctx, models.Session{UserID: "idle", Token: "t1"})
	f.clock = f.clock.Add(20 * time.Minute)
	f.registry.Get(ctx, models.Session{UserID: "active", Token: "t2"})
	f.clock = f.clock.Add(15 * time.Minute)

	closed := f.registry.SweepIdle(ctx, 30*time.Minute)
	assert.Equal(t, 1, closed)
	assert.Equal(t, 1, f.registry.Len())
}

func TestRegistry_StartIdleSweeperStopsWithContext(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		f.registry.StartIdleSweeper(ctx, time.Millisecond, time.Hour)
		close(done)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
