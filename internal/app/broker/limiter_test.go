package broker

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLimiterSlidingWindow(t *testing.T) {
	rl := NewMemoryLimiter(2, time.Minute)
	now := time.Unix(1000, 0)
	rl.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := rl.Allow(ctx, "a")
	assert.False(t, ok)

	ok, _ = rl.Allow(ctx, "b")
	assert.True(t, ok, "limits are per client")

	now = now.Add(time.Minute + time.Second)
	ok, _ = rl.Allow(ctx, "a")
	assert.True(t, ok)
}

func setupRedisLimiter(t *testing.T, limit int) (*RedisLimiter, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, limit, time.Minute), mr
}

func TestRedisLimiterWindow(t *testing.T) {
	rl, mr := setupRedisLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := rl.Allow(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, mr.Exists(keyPrefix+"a"))
	assert.Equal(t, time.Minute, mr.TTL(keyPrefix+"a"))

	mr.FastForward(time.Minute + time.Second)
	ok, err = rl.Allow(ctx, "a")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisLimiterWindowDoesNotSlide(t *testing.T) {
	rl, mr := setupRedisLimiter(t, 5)
	ctx := context.Background()

	ok, err := rl.Allow(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(20 * time.Second)
	ok, err = rl.Allow(ctx, "a")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 40*time.Second, mr.TTL(keyPrefix+"a"))
	v, err := mr.Get(keyPrefix + "a")
	require.NoError(t, err)
	assert.Equal(t, "2", v)
}

func TestRedisLimiterUnavailable(t *testing.T) {
	rl, mr := setupRedisLimiter(t, 2)
	mr.Close()

	_, err := rl.Allow(context.Background(), "a")
	assert.Error(t, err)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	client, err := Connect(context.Background(), addr, "", 0)
	require.NoError(t, err)
	_ = client.Close()

	mr.Close()
	_, err = Connect(context.Background(), addr, "", 0)
	assert.Error(t, err)
}
