// Package redissvc keeps the last known cart of each shopper in redis so a
// restarted process can show it immediately while the authoritative reload
// is in flight.
package redissvc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rogerio-castellano/cart-sync/internal/models"
)

const snapshotKeyPrefix = "cartsync:snapshot:"

type SnapshotCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewSnapshotCache(rdb *redis.Client, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		rdb: rdb,
		ttl: ttl,
	}
}

func snapshotKey(userID string) string {
	return snapshotKeyPrefix + userID
}

func (c *SnapshotCache) Save(ctx context.Context, userID string, snap models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.rdb.Set(ctx, snapshotKey(userID), data, c.ttl).Err()
}

// Load returns the stored snapshot, with false when there is none.
func (c *SnapshotCache) Load(ctx context.Context, userID string) (models.Snapshot, bool, error) {
	data, err := c.rdb.Get(ctx, snapshotKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return models.Snapshot{}, false, nil
	}
	if err != nil {
		return models.Snapshot{}, false, err
	}

	var snap models.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return models.Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	return snap, true, nil
}

func (c *SnapshotCache) Delete(ctx context.Context, userID string) error {
	return c.rdb.Del(ctx, snapshotKey(userID)).Err()
}

// Connect opens a client and checks it answers.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return rdb, nil
}
