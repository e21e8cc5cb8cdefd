package utils

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultCacheTTL = time.Hour
	cacheOpTimeout  = 2 * time.Second
	generationKey   = "gen"
)

// Cache is a best-effort JSON cache on Redis. A nil *Cache or a nil client turns every call
// into a miss or a no-op, so callers never branch on whether Redis is configured.
type Cache struct {
	rc  *redis.Client
	ttl time.Duration
}

// NewCache wraps rc. A non-positive ttl selects the one-hour default.
func NewCache(rc *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &Cache{rc: rc, ttl: ttl}
}

func (c *Cache) enabled() bool {
	return c != nil && c.rc != nil
}

// GetBytes returns the cached bytes for key.
func (c *Cache) GetBytes(ctx context.Context, key string) ([]byte, bool) {
	if !c.enabled() {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	b, err := c.rc.Get(ctx, key).Bytes()
	if err != nil {
		if err != redis.Nil {
			Sugar.Debugf("cache get failed key=%s err=%v", key, err)
		}
		return nil, false
	}
	return b, true
}

// GetJSON decodes the cached value for key into out.
func (c *Cache) GetJSON(ctx context.Context, key string, out interface{}) bool {
	b, ok := c.GetBytes(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(b, out); err != nil {
		Sugar.Warnf("cache decode failed key=%s err=%v", key, err)
		return false
	}
	return true
}

// SetJSON marshals v and stores it with the cache ttl.
func (c *Cache) SetJSON(ctx context.Context, key string, v interface{}) {
	if !c.enabled() {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := c.rc.Set(ctx, key, b, c.ttl).Err(); err != nil {
		Sugar.Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// Namespace returns the current key prefix for ns: ns followed by its generation. Keys written
// under an older generation are never read again and age out with the cache ttl.
func (c *Cache) Namespace(ctx context.Context, ns string) string {
	if !c.enabled() {
		return ns
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	gen, err := c.rc.Get(ctx, ns+generationKey).Int64()
	if err != nil && err != redis.Nil {
		Sugar.Debugf("cache generation read failed ns=%s err=%v", ns, err)
	}
	return fmt.Sprintf("%sg%d:", ns, gen)
}

// Bump moves ns to a new generation, invalidating every key built from an earlier Namespace.
func (c *Cache) Bump(ctx context.Context, ns string) {
	if !c.enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := c.rc.Incr(ctx, ns+generationKey).Err(); err != nil {
		Sugar.Warnf("cache invalidate failed ns=%s err=%v", ns, err)
	}
}
