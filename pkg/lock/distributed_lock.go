package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lloredia/pulsecheckpoint-runtime/pkg/logger"

	"github.com/go-redis/redis/v8"
)

const (
	defaultLockKey      = "liveness:sweep-lock"
	lockTTL             = 30 * time.Second // lock TTL, guards against deadlock
	lockAcquireTimeout  = 5 * time.Second
	lockExtendInterval  = 10 * time.Second
	maxLockHoldDuration = 2 * time.Minute
)

// DistributedLock coordinates mutually exclusive work across instances
type DistributedLock interface {
	// TryLock attempts to acquire the lock without blocking
	TryLock(ctx context.Context) (bool, error)

	// Unlock releases the lock
	Unlock(ctx context.Context) error

	// IsHeld reports whether this instance currently holds the lock
	IsHeld() bool
}

// RedisDistributedLock implements DistributedLock on Redis SET NX
type RedisDistributedLock struct {
	client       *redis.Client
	lockKey      string
	lockValue    string // unique token, prevents releasing another instance's lock
	ttl          time.Duration
	isHeld       bool
	acquiredAt   time.Time
	stopRenew    chan struct{}
	renewStopped bool // renew goroutine already stopped, prevents double close
	mu           sync.Mutex
}

// NewRedisDistributedLock creates a Redis-backed distributed lock.
// lockKey distinguishes independent locks (e.g. "liveness:sweep-lock").
func NewRedisDistributedLock(client *redis.Client, lockKey string) *RedisDistributedLock {
	if lockKey == "" {
		lockKey = defaultLockKey
	}
	return &RedisDistributedLock{
		client:    client,
		lockKey:   lockKey,
		lockValue: fmt.Sprintf("%s-%d-%d", lockKey, time.Now().UnixNano(), randomInt()),
		ttl:       lockTTL,
		isHeld:    false,
		stopRenew: make(chan struct{}),
	}
}

// TryLock attempts to acquire the lock with a bounded timeout
func (l *RedisDistributedLock) TryLock(ctx context.Context) (bool, error) {
	if l.client == nil {
		logger.Warn("redis client is nil, skipping distributed lock (running in single-instance mode)")
		l.isHeld = true
		return true, nil
	}

	acquireCtx, cancel := context.WithTimeout(ctx, lockAcquireTimeout)
	defer cancel()

	acquired, err := l.client.SetNX(acquireCtx, l.lockKey, l.lockValue, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock: %w", err)
	}

	if acquired {
		l.mu.Lock()
		l.isHeld = true
		l.acquiredAt = time.Now()

		// fresh channel per acquisition so TryLock/Unlock cycles work
		l.stopRenew = make(chan struct{})
		l.renewStopped = false
		l.mu.Unlock()

		go l.renewLock(ctx)

		logger.DebugCtx(ctx, "lock %s acquired", l.lockKey)
		return true, nil
	}

	logger.DebugCtx(ctx, "lock %s already held by another instance", l.lockKey)
	return false, nil
}

// Unlock releases the lock
func (l *RedisDistributedLock) Unlock(ctx context.Context) error {
	l.mu.Lock()
	if !l.isHeld {
		l.mu.Unlock()
		return nil
	}

	if l.client == nil {
		l.isHeld = false
		l.mu.Unlock()
		return nil
	}

	if !l.renewStopped {
		l.renewStopped = true
		close(l.stopRenew)
	}
	l.mu.Unlock()

	// Lua script so we only delete our own lock
	luaScript := `
		if redis.call("get", KEYS[1]) == ARGV[1] then
			return redis.call("del", KEYS[1])
		else
			return 0
		end
	`

	result, err := l.client.Eval(ctx, luaScript, []string{l.lockKey}, l.lockValue).Result()
	if err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}

	l.mu.Lock()
	l.isHeld = false
	l.mu.Unlock()

	if result.(int64) == 1 {
		logger.DebugCtx(ctx, "lock %s released", l.lockKey)
	} else {
		logger.WarnCtx(ctx, "lock %s was already released or held by another instance", l.lockKey)
	}

	return nil
}

// IsHeld reports whether this instance currently holds the lock
func (l *RedisDistributedLock) IsHeld() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.isHeld
}

// renewLock keeps the lock alive while held (background goroutine)
func (l *RedisDistributedLock) renewLock(ctx context.Context) {
	ticker := time.NewTicker(lockExtendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopRenew:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.mu.Lock()
			holdDuration := time.Since(l.acquiredAt)
			l.mu.Unlock()

			if holdDuration > maxLockHoldDuration {
				logger.WarnCtx(ctx, "lock %s held for too long (%.0f seconds), will be released by main goroutine",
					l.lockKey, holdDuration.Seconds())
				// never Unlock from here, avoids double close of stopRenew
				l.mu.Lock()
				l.isHeld = false
				l.mu.Unlock()
				return
			}

			// renew only our own lock
			luaScript := `
				if redis.call("get", KEYS[1]) == ARGV[1] then
					return redis.call("expire", KEYS[1], ARGV[2])
				else
					return 0
				end
			`

			result, err := l.client.Eval(ctx, luaScript,
				[]string{l.lockKey},
				l.lockValue,
				int(l.ttl.Seconds())).Result()

			if err != nil {
				logger.WarnCtx(ctx, "failed to renew lock %s: %v", l.lockKey, err)
				l.mu.Lock()
				l.isHeld = false
				l.mu.Unlock()
				return
			}

			if result.(int64) == 0 {
				logger.WarnCtx(ctx, "lock %s renewal failed, lock lost", l.lockKey)
				l.mu.Lock()
				l.isHeld = false
				l.mu.Unlock()
				return
			}

			logger.DebugCtx(ctx, "lock %s renewed", l.lockKey)
		}
	}
}

func randomInt() int64 {
	return time.Now().UnixNano() % 1000000
}
