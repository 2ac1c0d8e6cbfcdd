package balance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const cacheKeyPrefix = "bukubesar:balance:"

// Cache holds advisory display balances in Redis with a bounded TTL. Values
// here are stale by definition; correctness paths recompute from entries.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

// Put stores a freshly derived balance. Failures are ignored; the cache is
// best-effort.
func (c *Cache) Put(ctx context.Context, accountID uuid.UUID, value decimal.Decimal) {
	if c == nil || c.client == nil {
		return
	}
	_ = c.client.Set(ctx, cacheKeyPrefix+accountID.String(), value.String(), c.ttl).Err()
}

// Get returns the advisory balance and whether one was cached.
func (c *Cache) Get(ctx context.Context, accountID uuid.UUID) (decimal.Decimal, bool) {
	if c == nil || c.client == nil {
		return decimal.Zero, false
	}
	raw, err := c.client.Get(ctx, cacheKeyPrefix+accountID.String()).Result()
	if err != nil {
		return decimal.Zero, false
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, false
	}
	return value, true
}

// Invalidate drops cached balances for the given accounts, typically after a
// posting touches them.
func (c *Cache) Invalidate(ctx context.Context, accountIDs ...uuid.UUID) {
	if c == nil || c.client == nil || len(accountIDs) == 0 {
		return
	}
	keys := make([]string, 0, len(accountIDs))
	for _, id := range accountIDs {
		keys = append(keys, cacheKeyPrefix+id.String())
	}
	_ = c.client.Del(ctx, keys...).Err()
}
