package session

import (
	"context"
	"sync"

	"github.com/rogerio-castellano/cart-sync/internal/models"
)

// SnapshotCache keeps the last known cart of each user between sessions.
type SnapshotCache interface {
	Save(ctx context.Context, userID string, snap models.Snapshot) error
	Load(ctx context.Context, userID string) (models.Snapshot, bool, error)
	Delete(ctx context.Context, userID string) error
}

// MemorySnapshotCache is the in-process cache used when no redis is configured.
type MemorySnapshotCache struct {
	mu        sync.RWMutex
	snapshots map[string]models.Snapshot
}

func NewMemorySnapshotCache() *MemorySnapshotCache {
	return &MemorySnapshotCache{snapshots: make(map[string]models.Snapshot)}
}

func (c *MemorySnapshotCache) Save(_ context.Context, userID string, snap models.Snapshot) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.snapshots[userID] = snap
	return nil
}

func (c *MemorySnapshotCache) Load(_ context.Context, userID string) (models.Snapshot, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap, ok := c.snapshots[userID]
	return snap, ok, nil
}

func (c *MemorySnapshotCache) Delete(_ context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.snapshots, userID)
	return nil
}
