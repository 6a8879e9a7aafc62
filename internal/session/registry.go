// Package session maps authenticated users to their cart stores. A store is
// created on a user's first request, warmed from the snapshot cache and kept
// until logout or until it has been idle for too long.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rogerio-castellano/cart-sync/internal/cart"
	"github.com/rogerio-castellano/cart-sync/internal/models"
	"go.uber.org/zap"
)

const cacheTimeout = 2 * time.Second

// RemoteFactory returns the cart service client acting with a user's token.
type RemoteFactory func(token string) cart.Remote

type entry struct {
	session  *Session
	lastSeen time.Time
}

type Registry struct {
	newRemote RemoteFactory
	cache     SnapshotCache
	logger    *zap.Logger
	debounce  time.Duration
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

type Option func(*Registry)

func WithLogger(l *zap.Logger) Option {
	return func(r *Registry) { r.logger = l }
}

// WithDebounce sets the quantity write delay of every store created.
func WithDebounce(d time.Duration) Option {
	return func(r *Registry) { r.debounce = d }
}

func withClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

func NewRegistry(newRemote RemoteFactory, cache SnapshotCache, opts ...Option) *Registry {
	r := &Registry{
		newRemote: newRemote,
		cache:     cache,
		logger:    zap.NewNop(),
		now:       time.Now,
		sessions:  make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = NewMemorySnapshotCache()
	}
	return r
}

// Get returns the session of user, creating it when needed. A different token
// for a known user replaces the old session after flushing its writes.
func (r *Registry) Get(ctx context.Context, user models.Session) *Session {
	r.mu.Lock()
	e, ok := r.sessions[user.UserID]
	if ok && e.session.token == user.Token {
		e.lastSeen = r.now()
		r.mu.Unlock()
		return e.session
	}

	var replaced *Session
	if ok {
		replaced = e.session
	}
	sess := r.newSession(ctx, user)
	r.sessions[user.UserID] = &entry{session: sess, lastSeen: r.now()}
	r.mu.Unlock()

	if replaced != nil {
		r.logger.Info("session token changed, replacing store", zap.String("user_id", user.UserID))
		if err := replaced.shutdown(ctx); err != nil {
			r.logger.Warn("flush of replaced session failed", zap.String("user_id", user.UserID), zap.Error(err))
		}
	}
	return sess
}

func (r *Registry) newSession(ctx context.Context, user models.Session) *Session {
	notices := &cart.NoticeBuffer{}
	logger := r.logger.With(zap.String("user_id", user.UserID))
	userID := user.UserID

	store := cart.New(r.newRemote(user.Token),
		cart.WithNotifier(notices),
		cart.WithLogger(logger),
		cart.WithDebounce(r.debounce),
		cart.WithSnapshotHook(func(snap models.Snapshot) {
			ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
			defer cancel()
			if err := r.cache.Save(ctx, userID, snap); err != nil {
				logger.Warn("save cart snapshot failed", zap.Error(err))
			}
		}),
	)

	loadCtx, cancel := context.WithTimeout(ctx, cacheTimeout)
	defer cancel()
	if snap, ok, err := r.cache.Load(loadCtx, userID); err != nil {
		logger.Warn("load cart snapshot failed", zap.Error(err))
	} else if ok {
		store.Hydrate(snap)
	}

	return &Session{
		UserID:  userID,
		token:   user.Token,
		store:   store,
		notices: notices,
	}
}

// Logout flushes and closes the user's session and forgets the cached cart.
func (r *Registry) Logout(ctx context.Context, userID string) error {
	r.mu.Lock()
	e, ok := r.sessions[userID]
	delete(r.sessions, userID)
	r.mu.Unlock()

	var errs []error
	if ok {
		errs = append(errs, e.session.shutdown(ctx))
	}
	errs = append(errs, r.cache.Delete(ctx, userID))
	return errors.Join(errs...)
}

// Len reports how many sessions are open.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// SweepIdle closes sessions not used for longer than idleAfter. Their cached
// snapshot is kept so the next request starts warm.
func (r *Registry) SweepIdle(ctx context.Context, idleAfter time.Duration) int {
	r.mu.Lock()
	var idle []*Session
	for userID, e := range r.sessions {
		if r.now().Sub(e.lastSeen) > idleAfter {
			idle = append(idle, e.session)
			delete(r.sessions, userID)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		if err := s.shutdown(ctx); err != nil {
			r.logger.Warn("flush of idle session failed", zap.String("user_id", s.UserID), zap.Error(err))
		}
	}
	if len(idle) > 0 {
		r.logger.Info("idle sessions closed", zap.Int("count", len(idle)))
	}
	return len(idle)
}

// StartIdleSweeper runs SweepIdle every interval until ctx is done.
func (r *Registry) StartIdleSweeper(ctx context.Context, interval, idleAfter time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.SweepIdle(ctx, idleAfter)
		}
	}
}

// CloseAll flushes and closes every session, e.g. on shutdown.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	all := make([]*Session, 0, len(r.sessions))
	for _, e := range r.sessions {
		all = append(all, e.session)
	}
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	var errs []error
	for _, s := range all {
		errs = append(errs, s.shutdown(ctx))
	}
	return errors.Join(errs...)
}
