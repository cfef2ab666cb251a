package broker

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether a client may mint another session.
type Limiter interface {
	Allow(ctx context.Context, client string) (bool, error)
}

// MemoryLimiter is a sliding window limiter for a single broker instance.
type MemoryLimiter struct {
	mu       sync.Mutex
	history  map[string][]time.Time
	limit    int
	interval time.Duration
	now      func() time.Time
}

func NewMemoryLimiter(limit int, interval time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		history:  make(map[string][]time.Time),
		limit:    limit,
		interval: interval,
		now:      time.Now,
	}
}

func (rl *MemoryLimiter) Allow(_ context.Context, client string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	windowStart := now.Add(-rl.interval)

	attempts := rl.history[client]
	fresh := attempts[:0]
	for _, t := range attempts {
		if t.After(windowStart) {
			fresh = append(fresh, t)
		}
	}

	if len(fresh) >= rl.limit {
		rl.history[client] = fresh
		return false, nil
	}

	rl.history[client] = append(fresh, now)
	return true, nil
}
