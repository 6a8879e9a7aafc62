package session

import (
	"context"
	"errors"
	"sync"

	"github.com/rogerio-castellano/cart-sync/internal/cart"
	"github.com/rogerio-castellano/cart-sync/internal/models"
)

// ErrSessionClosed is returned for work submitted to a session that has been
// logged out or replaced.
var ErrSessionClosed = errors.New("session closed")

// Result is what one request against a session produced.
type Result struct {
	Cart    models.Snapshot
	Notices []models.Notice
	Err     error
}

// Session is one user's cart store plus the notices it has not shown yet.
// Requests against a session run one at a time so each response carries the
// notices its own operation produced.
type Session struct {
	UserID string

	token   string
	store   *cart.Store
	notices *cart.NoticeBuffer

	mu     sync.Mutex
	loaded bool
	closed bool
}

// Do runs fn against the store. The first call on a fresh session loads the
// cart from the service before fn runs.
func (s *Session) Do(ctx context.Context, fn func(ctx context.Context, st *cart.Store) error) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{Err: ErrSessionClosed, Notices: []models.Notice{}}
	}
	if !s.loaded {
		s.loaded = s.store.GetCartItems(ctx) == nil
	}

	var err error
	if fn != nil {
		err = fn(ctx, s.store)
	}
	return Result{
		Cart:    s.store.Snapshot(),
		Notices: s.notices.Drain(),
		Err:     err,
	}
}

// Reload always fetches the cart from the service.
func (s *Session) Reload(ctx context.Context) Result {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return Result{Err: ErrSessionClosed, Notices: []models.Notice{}}
	}
	err := s.store.GetCartItems(ctx)
	if err == nil {
		s.loaded = true
	}
	return Result{
		Cart:    s.store.Snapshot(),
		Notices: s.notices.Drain(),
		Err:     err,
	}
}

// shutdown writes what is still pending and stops the store. It is safe to
// call more than once.
func (s *Session) shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	err := s.store.FlushPending(ctx)
	s.store.Close()
	return err
}
