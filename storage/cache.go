package storage

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// CachedSlot serves reads from Redis and falls back to the base slot on a
// miss. Writes go to the base slot first and then refresh the cache.
type CachedSlot struct {
	base  Slot
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedSlot wraps base. A zero ttl disables caching of values.
func NewCachedSlot(base Slot, client *redis.Client, ttl time.Duration) *CachedSlot {
	if base == nil {
		panic("storage.NewCachedSlot: base slot is nil")
	}
	if ttl < 0 {
		ttl = 0
	}
	return &CachedSlot{base: base, redis: client, ttl: ttl}
}

func (c *CachedSlot) Get(ctx context.Context, key string) ([]byte, error) {
	if data, ok := c.loadFromCache(ctx, key); ok {
		return data, nil
	}
	data, err := c.base.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, data)
	return data, nil
}

func (c *CachedSlot) Put(ctx context.Context, key string, value []byte) error {
	if err := c.base.Put(ctx, key, value); err != nil {
		c.evict(ctx, key)
		return err
	}
	c.store(ctx, key, value)
	return nil
}

func (c *CachedSlot) loadFromCache(ctx context.Context, key string) ([]byte, bool) {
	if c.redis == nil {
		return nil, false
	}
	data, err := c.redis.Get(ctx, slotCacheKey(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			// On redis errors fall back to the backing slot without failing.
			log.WithError(err).WithField("key", key).Debug("slot cache read failed")
			_ = c.redis.Del(ctx, slotCacheKey(key)).Err()
		}
		return nil, false
	}
	return data, true
}

func (c *CachedSlot) store(ctx context.Context, key string, data []byte) {
	if c.redis == nil || c.ttl == 0 {
		return
	}
	if err := c.redis.Set(ctx, slotCacheKey(key), data, c.ttl).Err(); err != nil {
		log.WithError(err).WithField("key", key).Warn("failed to store slot cache entry")
	}
}

func (c *CachedSlot) evict(ctx context.Context, key string) {
	if c.redis == nil {
		return
	}
	_ = c.redis.Del(ctx, slotCacheKey(key)).Err()
}

func slotCacheKey(key string) string {
	return "slot:" + key
}
