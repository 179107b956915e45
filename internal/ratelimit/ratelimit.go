// Package ratelimit caps how many chat commands one user may send per
// window. The Redis limiter shares counts across all of a user's
// connections; the local limiter does the same within one process.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis is a fixed-window counter: INCR a per-user key and let it expire at
// the end of the window.
type Redis struct {
	client *redis.Client
	limit  int
	window time.Duration
}

func NewRedis(client *redis.Client, limit int, window time.Duration) *Redis {
	return &Redis{client: client, limit: limit, window: window}
}

// limitKey returns the key for a user's send counter.
func limitKey(key string) string {
	return fmt.Sprintf("ratelimit:send:%s", key)
}

// Allow counts one send for key and reports whether it is within the limit.
//
// ExpireNX only sets a TTL on the first INCR of a window. A plain EXPIRE
// would push the deadline back on every send and a steady sender would
// never get a fresh window.
func (l *Redis) Allow(ctx context.Context, key string) (bool, error) {
	k := limitKey(key)

	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("rate limit: %w", err)
	}
	return incr.Val() <= int64(l.limit), nil
}

// Local is an in-process token bucket per key. A bucket holds credit
// measured in time: it fills at wall-clock speed up to one window, and each
// send spends window/limit of it. Integer durations keep a client that waits
// exactly window/limit from being refused on rounding.
type Local struct {
	mu        sync.Mutex
	buckets   map[string]*bucket
	limit     int
	window    time.Duration
	cost      time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type bucket struct {
	credit    time.Duration
	lastCheck time.Time
}

func NewLocal(limit int, window time.Duration) *Local {
	if limit <= 0 {
		limit = 1
	}
	if window <= 0 {
		window = time.Second
	}
	cost := window / time.Duration(limit)
	if cost <= 0 {
		cost = 1
	}
	return &Local{
		buckets: make(map[string]*bucket),
		limit:   limit,
		window:  window,
		cost:    cost,
		now:     time.Now,
	}
}

func (l *Local) Allow(_ context.Context, key string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.sweep(now)

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{credit: l.window, lastCheck: now}
		l.buckets[key] = b
	}
	b.credit = l.refill(b, now)
	b.lastCheck = now

	if b.credit < l.cost {
		return false, nil
	}
	b.credit -= l.cost
	return true, nil
}

func (l *Local) refill(b *bucket, now time.Time) time.Duration {
	credit := b.credit
	if elapsed := now.Sub(b.lastCheck); elapsed > 0 {
		credit += elapsed
	}
	if credit > l.window {
		credit = l.window
	}
	return credit
}

// sweep drops buckets that have refilled completely, at most once per
// window. A full bucket is indistinguishable from a fresh one.
func (l *Local) sweep(now time.Time) {
	if !l.lastSweep.IsZero() && now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, b := range l.buckets {
		if l.refill(b, now) >= l.window {
			delete(l.buckets, key)
		}
	}
}
