// Package scheduler coalesces bursts of quantity changes into one remote write
// per cart line. The last quantity scheduled for a key before its delay
// elapses is the one written.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rogerio-castellano/cart-sync/internal/cartapi"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const DefaultDelay = 500 * time.Millisecond

// WriteFunc performs the remote quantity update for a cart line.
type WriteFunc func(ctx context.Context, key string, quantity int) error

// FailureFunc is told about writes that failed for any reason other than the
// line no longer existing on the server.
type FailureFunc func(key string, quantity int, err error)

type pendingWrite struct {
	timer    *time.Timer
	quantity int
	seq      uint64
}

// Scheduler owns the pending-write registry: at most one timer per key.
type Scheduler struct {
	delay     time.Duration
	write     WriteFunc
	onFailure FailureFunc
	timeout   time.Duration
	logger    *zap.Logger

	mu      sync.Mutex
	pending map[string]*pendingWrite
	seq     uint64
	stopped bool
	wg      sync.WaitGroup
}

type Option func(*Scheduler)

// WithLogger sets the logger used for write outcomes.
func WithLogger(l *zap.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithWriteTimeout bounds each timer-triggered write.
func WithWriteTimeout(d time.Duration) Option {
	return func(s *Scheduler) { s.timeout = d }
}

// New creates a scheduler. A non-positive delay means DefaultDelay.
func New(delay time.Duration, write WriteFunc, onFailure FailureFunc, opts ...Option) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}
	s := &Scheduler{
		delay:     delay,
		write:     write,
		onFailure: onFailure,
		timeout:   30 * time.Second,
		logger:    zap.NewNop(),
		pending:   make(map[string]*pendingWrite),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Schedule replaces any pending write for key with one carrying quantity.
func (s *Scheduler) Schedule(key string, quantity int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if p, ok := s.pending[key]; ok {
		p.timer.Stop()
	}

	s.seq++
	p := &pendingWrite{quantity: quantity, seq: s.seq}
	seq := s.seq
	p.timer = time.AfterFunc(s.delay, func() { s.fire(key, seq) })
	s.pending[key] = p
}

// Cancel drops the pending write for key. It reports whether one existed.
func (s *Scheduler) Cancel(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.pending[key]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.pending, key)
	return true
}

// CancelAll drops every pending write.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, p := range s.pending {
		p.timer.Stop()
		delete(s.pending, key)
	}
}

// Pending reports whether a write for key is waiting for its timer.
func (s *Scheduler) Pending(key string) bool {
	_, ok := s.PendingQuantity(key)
	return ok
}

// PendingQuantity returns the quantity waiting to be written for key.
func (s *Scheduler) PendingQuantity(key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.pending[key]
	if !ok {
		return 0, false
	}
	return p.quantity, true
}

// FlushAll stops every timer and performs the pending writes now, in
// parallel. Failures are reported to the FailureFunc as usual; the first one
// is also returned.
func (s *Scheduler) FlushAll(ctx context.Context) error {
	s.mu.Lock()
	batch := make(map[string]int, len(s.pending))
	for key, p := range s.pending {
		p.timer.Stop()
		batch[key] = p.quantity
	}
	s.pending = make(map[string]*pendingWrite)
	s.mu.Unlock()

	var g errgroup.Group
	for key, quantity := range batch {
		g.Go(func() error {
			return s.run(ctx, key, quantity)
		})
	}
	return g.Wait()
}

// Stop cancels all pending writes and waits for in-flight ones to finish.
// Schedule is a no-op afterwards.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.CancelAll()
	s.wg.Wait()
}

func (s *Scheduler) fire(key string, seq uint64) {
	s.mu.Lock()
	p, ok := s.pending[key]
	if !ok || p.seq != seq {
		// Replaced or cancelled after the timer had already fired.
		s.mu.Unlock()
		return
	}
	delete(s.pending, key)
	quantity := p.quantity
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_ = s.run(ctx, key, quantity)
}

func (s *Scheduler) run(ctx context.Context, key string, quantity int) error {
	err := s.write(ctx, key, quantity)
	switch {
	case err == nil:
		s.logger.Debug("quantity written", zap.String("key", key), zap.Int("quantity", quantity))
		return nil
	case cartapi.IsNotFound(err):
		s.logger.Debug("quantity write for removed line ignored", zap.String("key", key))
		return nil
	default:
		s.logger.Warn("quantity write failed", zap.String("key", key), zap.Int("quantity", quantity), zap.Error(err))
		if s.onFailure != nil {
			s.onFailure(key, quantity, err)
		}
		return err
	}
}
