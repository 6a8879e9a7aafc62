// Package rate_limiter hands out one token bucket per client so a single
// shopper cannot flood the cart service through us.
package rate_limiter

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

type Limiter struct {
	limit rate.Limit
	burst int

	mu      sync.Mutex
	clients map[string]*clientLimiter
}

// New allows each client perSecond requests per second with the given burst.
func New(perSecond float64, burst int) *Limiter {
	return &Limiter{
		limit:   rate.Limit(perSecond),
		burst:   burst,
		clients: make(map[string]*clientLimiter),
	}
}

func (l *Limiter) GetClient(id string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, exists := l.clients[id]
	if !exists {
		limiter := rate.NewLimiter(l.limit, l.burst)
		l.clients[id] = &clientLimiter{limiter, time.Now()}
		return limiter
	}

	c.lastSeen = time.Now()
	return c.limiter
}

// Allow reports whether client id may make a request now.
func (l *Limiter) Allow(id string) bool {
	return l.GetClient(id).Allow()
}

// Cleanup forgets clients not seen for longer than idleAfter.
func (l *Limiter) Cleanup(idleAfter time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, c := range l.clients {
		if time.Since(c.lastSeen) > idleAfter {
			delete(l.clients, id)
		}
	}
}

// StartCleanupLoop calls Cleanup every minute until ctx is done.
func (l *Limiter) StartCleanupLoop(ctx context.Context, idleAfter time.Duration) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup(idleAfter)
		}
	}
}

func (l *Limiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.clients)
}

func (l *Limiter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clients = make(map[string]*clientLimiter)
}
