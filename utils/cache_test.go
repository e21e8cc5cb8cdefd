package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheRoundTripAndInvalidate(t *testing.T) {
	mr, rc := newTestRedis(t)
	cache := NewCache(rc, time.Minute)
	ctx := context.Background()

	ns := cache.Namespace(ctx, "cache:blogs:")
	assert.Equal(t, "cache:blogs:g0:", ns)
	cache.SetJSON(ctx, ns+"list:a", map[string]int{"count": 2})
	cache.SetJSON(ctx, ns+"slug:b", "x")
	cache.SetJSON(ctx, "other:key", "y")

	var got map[string]int
	require.True(t, cache.GetJSON(ctx, ns+"list:a", &got))
	assert.Equal(t, 2, got["count"])
	assert.Equal(t, time.Minute, mr.TTL(ns+"list:a"))

	cache.Bump(ctx, "cache:blogs:")
	next := cache.Namespace(ctx, "cache:blogs:")
	assert.Equal(t, "cache:blogs:g1:", next)
	_, ok := cache.GetBytes(ctx, next+"list:a")
	assert.False(t, ok)
	_, ok = cache.GetBytes(ctx, "other:key")
	assert.True(t, ok)
}

func TestCacheWriteAfterBumpStaysUnreachable(t *testing.T) {
	_, rc := newTestRedis(t)
	cache := NewCache(rc, time.Hour)
	ctx := context.Background()

	// A reader resolves the namespace, a writer invalidates, then the reader stores its result.
	stale := cache.Namespace(ctx, "cache:blogs:")
	cache.Bump(ctx, "cache:blogs:")
	cache.SetJSON(ctx, stale+"list:10:1", "old page")

	var got string
	assert.False(t, cache.GetJSON(ctx, cache.Namespace(ctx, "cache:blogs:")+"list:10:1", &got))
}

func TestNilCacheIsNoop(t *testing.T) {
	var cache *Cache
	ctx := context.Background()

	cache.SetJSON(ctx, "k", 1)
	cache.Bump(ctx, "k")
	assert.Equal(t, "k", cache.Namespace(ctx, "k"))
	_, ok := cache.GetBytes(ctx, "k")
	assert.False(t, ok)

	disabled := NewCache(nil, 0)
	var v int
	assert.False(t, disabled.GetJSON(ctx, "k", &v))
}
