package utils

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	creationLockPrefix    = "lock:blog:create:"
	creationLockOpTimeout = 500 * time.Millisecond
)

// CreationLock admits one post creation per idempotency key at a time. A key stays busy from
// TryAcquire until the cooldown passed to ReleaseAfter has elapsed.
type CreationLock interface {
	TryAcquire(ctx context.Context, key string) bool
	ReleaseAfter(key string, cooldown time.Duration)
}

// MemoryCreationLock is the process-wide key table.
type MemoryCreationLock struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

func NewMemoryCreationLock() *MemoryCreationLock {
	return &MemoryCreationLock{busy: make(map[string]struct{})}
}

func (l *MemoryCreationLock) TryAcquire(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.busy[key]; ok {
		return false
	}
	l.busy[key] = struct{}{}
	return true
}

func (l *MemoryCreationLock) ReleaseAfter(key string, cooldown time.Duration) {
	if cooldown <= 0 {
		l.release(key)
		return
	}
	time.AfterFunc(cooldown, func() { l.release(key) })
}

// Busy reports whether key is currently held or cooling down.
func (l *MemoryCreationLock) Busy(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.busy[key]
	return ok
}

func (l *MemoryCreationLock) release(key string) {
	l.mu.Lock()
	delete(l.busy, key)
	l.mu.Unlock()
}

// RedisCreationLock shares the key table across instances. A key is claimed with SETNX and a
// max-hold TTL, and released by shortening that TTL to the cooldown. When Redis fails the key
// is admitted through the in-process fallback instead.
type RedisCreationLock struct {
	rc       *redis.Client
	maxHold  time.Duration
	fallback *MemoryCreationLock

	mu    sync.Mutex
	local map[string]struct{}
}

func NewRedisCreationLock(rc *redis.Client, maxHold time.Duration) *RedisCreationLock {
	if maxHold <= 0 {
		maxHold = time.Minute
	}
	return &RedisCreationLock{
		rc:       rc,
		maxHold:  maxHold,
		fallback: NewMemoryCreationLock(),
		local:    make(map[string]struct{}),
	}
}

func (l *RedisCreationLock) TryAcquire(ctx context.Context, key string) bool {
	ctx, cancel := context.WithTimeout(ctx, creationLockOpTimeout)
	defer cancel()

	ok, err := l.rc.SetNX(ctx, creationLockPrefix+key, "1", l.maxHold).Result()
	if err == nil {
		return ok
	}

	Sugar.Warnf("creation lock: redis unavailable, using in-process table key=%s err=%v", key, err)
	if !l.fallback.TryAcquire(ctx, key) {
		return false
	}
	l.mu.Lock()
	l.local[key] = struct{}{}
	l.mu.Unlock()
	return true
}

func (l *RedisCreationLock) ReleaseAfter(key string, cooldown time.Duration) {
	l.mu.Lock()
	_, isLocal := l.local[key]
	delete(l.local, key)
	l.mu.Unlock()
	if isLocal {
		l.fallback.ReleaseAfter(key, cooldown)
		return
	}

	// Release must not depend on the request that held the key.
	ctx, cancel := context.WithTimeout(context.Background(), creationLockOpTimeout)
	defer cancel()

	var err error
	if cooldown <= 0 {
		err = l.rc.Del(ctx, creationLockPrefix+key).Err()
	} else {
		err = l.rc.Expire(ctx, creationLockPrefix+key, cooldown).Err()
	}
	if err != nil {
		Sugar.Warnf("creation lock: release failed, key expires after max hold key=%s err=%v", key, err)
	}
}
