package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/project-ledger/internal/models"
)

// SnapshotCache caches computed dashboard snapshots per user. Entries are
// invalidated by the change feed and expire after the configured TTL as a
// backstop, so a stale entry can only outlive a missed notification briefly.
type SnapshotCache struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewSnapshotCache creates a new snapshot cache
func NewSnapshotCache(redis *RedisCache, ttl time.Duration) *SnapshotCache {
	return &SnapshotCache{
		redis: redis,
		ttl:   ttl,
	}
}

// Key returns the cache key for a user's snapshot.
// Format: dashboard:<user-id>
func (c *SnapshotCache) Key(userID string) string {
	return fmt.Sprintf("dashboard:%s", userID)
}

// Get retrieves a cached snapshot. A miss returns (nil, nil).
func (c *SnapshotCache) Get(ctx context.Context, userID string) (*models.PortfolioSnapshot, error) {
	data, err := c.redis.Get(ctx, c.Key(userID))
	if err != nil {
		if IsMiss(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read snapshot cache: %w", err)
	}

	var snapshot models.PortfolioSnapshot
	if err := json.Unmarshal([]byte(data), &snapshot); err != nil {
		// A corrupt entry is treated as a miss and overwritten on next Set
		return nil, nil
	}

	return &snapshot, nil
}

// Set stores a snapshot with the configured TTL
func (c *SnapshotCache) Set(ctx context.Context, userID string, snapshot *models.PortfolioSnapshot) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	if err := c.redis.Set(ctx, c.Key(userID), data, c.ttl); err != nil {
		return fmt.Errorf("failed to write snapshot cache: %w", err)
	}

	return nil
}

// Invalidate removes a user's cached snapshot
func (c *SnapshotCache) Invalidate(ctx context.Context, userID string) error {
	return c.redis.Del(ctx, c.Key(userID))
}
