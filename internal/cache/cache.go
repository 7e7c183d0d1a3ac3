package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache layers an in-process LRU (L1) over Redis (L2). Both tiers use the
// same ttl. With a nil Redis client it degrades to L1 only.
type Cache struct {
	l1    *LRUCache[string]
	l2    *redis.Client
	l2TTL time.Duration
}

func NewMultiTierCache(l1Capacity int, redisClient *redis.Client, ttl time.Duration) *Cache {
	return &Cache{
		l1:    NewLRUCacheWithTTL[string](l1Capacity, ttl),
		l2:    redisClient,
		l2TTL: ttl,
	}
}

// Get reports a hit from either tier. L2 failures count as misses.
func (c *Cache) Get(ctx context.Context, key string) (string, bool) {
	val, found, _ := c.lookup(ctx, key)
	return val, found
}

func (c *Cache) lookup(ctx context.Context, key string) (string, bool, error) {
	if val, found := c.l1.Get(key); found {
		return val, true, nil
	}
	if c.l2 == nil {
		return "", false, nil
	}

	val, err := c.l2.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", key, err)
	}

	c.l1.Set(key, val)
	return val, true, nil
}

func (c *Cache) Set(ctx context.Context, key string, value string) error {
	c.l1.Set(key, value)
	if c.l2 == nil {
		return nil
	}
	if err := c.l2.Set(ctx, key, value, c.l2TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Delete(ctx context.Context, key string) error {
	c.l1.Delete(key)
	if c.l2 == nil {
		return nil
	}
	return c.l2.Del(ctx, key).Err()
}

// GetJSON decodes a cached value into dest. An undecodable entry is dropped
// and reported as a miss.
func (c *Cache) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	val, found, err := c.lookup(ctx, key)
	if err != nil || !found {
		return false, err
	}

	if err := json.Unmarshal([]byte(val), dest); err != nil {
		_ = c.Delete(ctx, key)
		return false, nil
	}
	return true, nil
}

func (c *Cache) SetJSON(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, string(data))
}
