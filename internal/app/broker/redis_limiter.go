package broker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "voicelink:mint:"

// RedisLimiter is a fixed window limiter shared by every broker instance using the same Redis.
type RedisLimiter struct {
	client   *redis.Client
	limit    int
	interval time.Duration
}

func NewRedisLimiter(client *redis.Client, limit int, interval time.Duration) *RedisLimiter {
	return &RedisLimiter{client: client, limit: limit, interval: interval}
}

// Allow creates the window key together with its TTL, then counts the attempt in it.
// INCR keeps the TTL, so a window always expires even if counting fails.
func (rl *RedisLimiter) Allow(ctx context.Context, client string) (bool, error) {
	key := keyPrefix + client
	err := rl.client.SetArgs(ctx, key, 0, redis.SetArgs{Mode: "NX", TTL: rl.interval}).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return false, fmt.Errorf("rate limit window: %w", err)
	}
	count, err := rl.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	return count <= int64(rl.limit), nil
}

// Connect opens a client and checks the server is reachable.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}
