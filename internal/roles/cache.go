package roles

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cachePrefix = "societyhub:roles:"

// Cache keeps a society's role collection in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache builds a cache. A zero ttl disables expiry.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func cacheKey(societyID int64) string {
	return fmt.Sprintf("%s%d", cachePrefix, societyID)
}

// Get returns the cached collection and whether it was present.
func (c *Cache) Get(ctx context.Context, societyID int64) ([]Role, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, nil
	}
	payload, err := c.client.Get(ctx, cacheKey(societyID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("roles: cache get: %w", err)
	}
	var records []Role
	if err := json.Unmarshal(payload, &records); err != nil {
		return nil, false, fmt.Errorf("roles: cache decode: %w", err)
	}
	return records, true, nil
}

// Set stores the collection.
func (c *Cache) Set(ctx context.Context, societyID int64, records []Role) error {
	if c == nil || c.client == nil {
		return nil
	}
	payload, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("roles: cache encode: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(societyID), payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("roles: cache set: %w", err)
	}
	return nil
}

// Invalidate drops the cached collection.
func (c *Cache) Invalidate(ctx context.Context, societyID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, cacheKey(societyID)).Err(); err != nil {
		return fmt.Errorf("roles: cache invalidate: %w", err)
	}
	return nil
}
