// Package tasklock implements the distributed-lock-guarded background
// workers (C10): eager snapshot backfill for started tables, and a poller
// that advances tables whose active seat is a bot. Grounded in
// original_source's task_lock_repository.py (SET NX EX / DEL semantics)
// and internal/game/table.go's ticker-driven goroutine loop.
package tasklock

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const lockTTL = 60 * time.Second

// Lock is the Redis-backed mutual-exclusion primitive spec §4.9 names
// setLock/release: a key either isn't held (set succeeds) or is (set fails),
// with no blocking wait — callers skip the work rather than queue for it.
type Lock struct {
	rdb *redis.Client
}

// New wires a Lock against an already-configured Redis client.
func New(rdb *redis.Client) *Lock {
	return &Lock{rdb: rdb}
}

// Acquire attempts to take the lock named key, expiring automatically after
// 60 seconds even if Release is never called (a crashed worker can't wedge
// the lock forever).
func (l *Lock) Acquire(ctx context.Context, key string) (bool, error) {
	ok, err := l.rdb.SetNX(ctx, key, "1", lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", key, err)
	}
	return ok, nil
}

// Release drops the lock early, for callers that finish well before the TTL.
func (l *Lock) Release(ctx context.Context, key string) error {
	if err := l.rdb.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", key, err)
	}
	return nil
}
