package practice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only when it still holds our token.
const releaseScript = `
	if redis.call("get", KEYS[1]) == ARGV[1] then
		return redis.call("del", KEYS[1])
	else
		return 0
	end
`

// lockClient is the subset of *redis.Client the locker needs.
type lockClient interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Eval(ctx context.Context, script string, keys []string, args ...interface{}) *redis.Cmd
}

const releaseTimeout = 2 * time.Second

// RedisLocker is a SetNX lock per session, shared by every API process.
type RedisLocker struct {
	redis lockClient
	ttl   time.Duration
}

// NewRedisLocker returns a locker whose locks expire after ttl.
func NewRedisLocker(client lockClient, ttl time.Duration) *RedisLocker {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &RedisLocker{redis: client, ttl: ttl}
}

// Lock acquires the session lock or fails with ErrSessionBusy.
func (l *RedisLocker) Lock(ctx context.Context, sessionID uuid.UUID) (func() error, error) {
	key := fmt.Sprintf("practice:lock:%s", sessionID.String())
	token := uuid.New().String()

	acquired, err := l.redis.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !acquired {
		return nil, ErrSessionBusy
	}

	// Release even when the request that took the lock has been cancelled.
	unlock := func() error {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
		defer cancel()
		return l.redis.Eval(releaseCtx, releaseScript, []string{key}, token).Err()
	}
	return unlock, nil
}
