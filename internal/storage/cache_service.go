package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/defi-dashboard/internal/types"
	"github.com/redis/go-redis/v9"
)

// CacheService provides JSON caching for portfolio snapshots and transaction
// lists. It is strictly a read accelerator; Postgres remains the source of
// truth and every sync invalidates the owner's keys.
type CacheService struct {
	redis *RedisCache
	ttl   time.Duration
}

// NewCacheService creates a new cache service
func NewCacheService(redis *RedisCache, ttl time.Duration) *CacheService {
	return &CacheService{
		redis: redis,
		ttl:   ttl,
	}
}

// PortfolioKey generates the cache key for an account snapshot.
// Format: portfolio:<address>
func (c *CacheService) PortfolioKey(address string) string {
	return fmt.Sprintf("portfolio:%s", types.NormalizeAddress(address))
}

// TransactionsKey generates the cache key for a transaction list.
// Format: txs:<address>
func (c *CacheService) TransactionsKey(address string) string {
	return fmt.Sprintf("txs:%s", types.NormalizeAddress(address))
}

// Set stores a value in cache with the configured TTL
func (c *CacheService) Set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return c.redis.Set(ctx, key, data, c.ttl)
}

// Get retrieves a value from cache and deserializes it. A miss returns
// (false, nil).
func (c *CacheService) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	data, err := c.redis.Get(ctx, key)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("failed to get from cache: %w", err)
	}

	if err := json.Unmarshal([]byte(data), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return true, nil
}

// Invalidate removes one or more keys from cache
func (c *CacheService) Invalidate(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.redis.Del(ctx, keys...)
}

// InvalidateAddress removes both the portfolio and transaction entries for an
// address, called after every successful sync.
func (c *CacheService) InvalidateAddress(ctx context.Context, address string) error {
	return c.Invalidate(ctx, c.PortfolioKey(address), c.TransactionsKey(address))
}
