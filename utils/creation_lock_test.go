package utils

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCreationLockExclusive(t *testing.T) {
	lock := NewMemoryCreationLock()
	ctx := context.Background()

	var admitted int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lock.TryAcquire(ctx, "k1") {
				atomic.AddInt32(&admitted, 1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), admitted)
	assert.True(t, lock.TryAcquire(ctx, "k2"), "other keys are independent")
}

func TestMemoryCreationLockCooldown(t *testing.T) {
	lock := NewMemoryCreationLock()
	ctx := context.Background()

	require.True(t, lock.TryAcquire(ctx, "k"))
	lock.ReleaseAfter("k", 50*time.Millisecond)

	assert.False(t, lock.TryAcquire(ctx, "k"), "key stays busy during cooldown")
	assert.Eventually(t, func() bool { return !lock.Busy("k") }, time.Second, 5*time.Millisecond)
	assert.True(t, lock.TryAcquire(ctx, "k"))
}

func TestMemoryCreationLockZeroCooldownReleasesNow(t *testing.T) {
	lock := NewMemoryCreationLock()
	require.True(t, lock.TryAcquire(context.Background(), "k"))
	lock.ReleaseAfter("k", 0)
	assert.False(t, lock.Busy("k"))
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rc.Close() })
	return mr, rc
}

func TestRedisCreationLock(t *testing.T) {
	mr, rc := newTestRedis(t)
	lock := NewRedisCreationLock(rc, time.Minute)
	ctx := context.Background()

	require.True(t, lock.TryAcquire(ctx, "k"))
	assert.False(t, lock.TryAcquire(ctx, "k"))
	assert.Equal(t, time.Minute, mr.TTL(creationLockPrefix+"k"))

	lock.ReleaseAfter("k", 5*time.Second)
	assert.Equal(t, 5*time.Second, mr.TTL(creationLockPrefix+"k"))
	assert.False(t, lock.TryAcquire(ctx, "k"), "cooldown still holds the key")

	mr.FastForward(5 * time.Second)
	assert.True(t, lock.TryAcquire(ctx, "k"))
}

func TestRedisCreationLockSharedAcrossInstances(t *testing.T) {
	_, rc := newTestRedis(t)
	a := NewRedisCreationLock(rc, time.Minute)
	b := NewRedisCreationLock(rc, time.Minute)

	require.True(t, a.TryAcquire(context.Background(), "k"))
	assert.False(t, b.TryAcquire(context.Background(), "k"))
}

func TestRedisCreationLockFallsBackToMemory(t *testing.T) {
	mr, rc := newTestRedis(t)
	lock := NewRedisCreationLock(rc, time.Minute)
	mr.Close()

	ctx := context.Background()
	require.True(t, lock.TryAcquire(ctx, "k"))
	assert.False(t, lock.TryAcquire(ctx, "k"))

	lock.ReleaseAfter("k", 0)
	assert.True(t, lock.TryAcquire(ctx, "k"))
}
