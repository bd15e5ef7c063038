package ledger

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLocker(t *testing.T) {
	addr := os.Getenv("REDIS_ADDRESS")
	if addr == "" {
		t.Skip("REDIS_ADDRESS not set")
	}

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	t.Cleanup(func() { _ = rdb.Close() })
	ctx := context.Background()
	require.NoError(t, rdb.Ping(ctx).Err())

	locker := NewRedisLocker(rdb)
	locker.retry = nil

	unlock, err := locker.Lock(ctx, []string{ItemKey(1), ItemKey(2), ItemKey(1)}, 5*time.Second)
	require.NoError(t, err)

	_, err = locker.Lock(ctx, []string{ItemKey(2)}, 5*time.Second)
	assert.ErrorIs(t, err, ErrLockNotObtained)

	unlock()

	unlock, err = locker.Lock(ctx, []string{ItemKey(2)}, 5*time.Second)
	require.NoError(t, err)
	unlock()
}

func TestNopLocker(t *testing.T) {
	unlock, err := NopLocker{}.Lock(context.Background(), []string{"x"}, time.Second)
	require.NoError(t, err)
	unlock()
}
