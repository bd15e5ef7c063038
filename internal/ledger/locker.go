package ledger

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"
)

// Locker serializes adjustments on the same keys across API instances.
type Locker interface {
	Lock(ctx context.Context, keys []string, ttl time.Duration) (unlock func(), err error)
}

// NopLocker is used when no Redis is configured; the version check still applies.
type NopLocker struct{}

func (NopLocker) Lock(context.Context, []string, time.Duration) (func(), error) {
	return func() {}, nil
}

type RedisLocker struct {
	client *redislock.Client
	retry  redislock.RetryStrategy
}

func NewRedisLocker(rdb *redis.Client) *RedisLocker {
	return &RedisLocker{
		client: redislock.New(rdb),
		retry:  redislock.LimitRetry(redislock.LinearBackoff(50*time.Millisecond), 40),
	}
}

// Lock obtains keys in sorted order so two adjustments never wait on each other crosswise.
func (l *RedisLocker) Lock(ctx context.Context, keys []string, ttl time.Duration) (func(), error) {
	sorted := append([]string(nil), keys...)
	sort.Strings(sorted)

	held := make([]*redislock.Lock, 0, len(sorted))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			_ = held[i].Release(context.Background())
		}
	}

	seen := make(map[string]bool, len(sorted))
	for _, key := range sorted {
		if seen[key] {
			continue
		}
		seen[key] = true

		lock, err := l.client.Obtain(ctx, key, ttl, &redislock.Options{RetryStrategy: l.retry})
		if err != nil {
			release()
			if errors.Is(err, redislock.ErrNotObtained) {
				return nil, fmt.Errorf("%w (%s)", ErrLockNotObtained, key)
			}
			return nil, err
		}
		held = append(held, lock)
	}
	return release, nil
}

func ItemKey(id uint) string {
	return fmt.Sprintf("granja:supply-item:%d", id)
}

func NameKey(name string) string {
	return "granja:supply-name:" + normalizeName(name)
}
