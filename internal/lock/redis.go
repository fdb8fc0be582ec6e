package lock

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	unlockScript = "if redis.call('get', KEYS[1]) == ARGV[1] then return redis.call('del', KEYS[1]) else return 0 end"
	keyPrefix    = "edibox:lock:"
)

// RedisLocker is a Locker shared by every process pointing at the same Redis.
// A lock expires after ttl even when its holder never releases it.
type RedisLocker struct {
	client   redis.UniversalClient
	ttl      time.Duration
	wait     time.Duration
	logger   *slog.Logger
	newToken func() string
}

// NewRedisLocker creates a RedisLocker. wait bounds how long Acquire polls for a held lock.
func NewRedisLocker(client redis.UniversalClient, ttl, wait time.Duration, logger *slog.Logger) *RedisLocker {
	return &RedisLocker{
		client:   client,
		ttl:      ttl,
		wait:     wait,
		logger:   logger,
		newToken: uuid.NewString,
	}
}

func (l *RedisLocker) tryLock(ctx context.Context, key, token string) (bool, error) {
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %s: %w", key, err)
	}
	return ok, nil
}

func (l *RedisLocker) unlock(ctx context.Context, key, token string) error {
	result, err := l.client.Eval(ctx, unlockScript, []string{key}, token).Result()
	if err != nil {
		return err
	}
	if result == int64(0) {
		return fmt.Errorf("unlock failed, either lock expired or not the lock holder for key %s", key)
	}
	return nil
}

// Acquire implements Locker by polling SETNX with jitter until wait elapses.
func (l *RedisLocker) Acquire(ctx context.Context, key string) (func(), error) {
	redisKey := keyPrefix + key
	token := l.newToken()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.tryLock(ctx, redisKey, token)
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				// released with a fresh context so a canceled request still frees the key
				unlockCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := l.unlock(unlockCtx, redisKey, token); err != nil {
					l.logger.Warn("failed to release lock", slog.String("key", key), slog.Any("error", err))
				}
			}, nil
		}

		if !time.Now().Before(deadline) {
			return nil, ErrLockTimeout
		}

		timer := time.NewTimer(time.Duration(10+rand.IntN(90)) * time.Millisecond)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
