package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func TestLocal_BurstThenRefill(t *testing.T) {
	l := NewLocal(3, time.Second)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		ok, err := l.Allow(ctx, "alice")
		require.NoError(t, err)
		require.True(t, ok, "send %d", i)
	}
	ok, _ := l.Allow(ctx, "alice")
	require.False(t, ok)

	// Other users have their own bucket.
	ok, _ = l.Allow(ctx, "bob")
	require.True(t, ok)

	// A third of the window refills one token.
	now = now.Add(time.Second / 3)
	ok, _ = l.Allow(ctx, "alice")
	require.True(t, ok)
	ok, _ = l.Allow(ctx, "alice")
	require.False(t, ok)
}

func TestLocal_RefillIsCapped(t *testing.T) {
	l := NewLocal(2, time.Second)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	now = now.Add(time.Hour)
	for i := 0; i < 2; i++ {
		ok, _ := l.Allow(ctx, "alice")
		require.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "alice")
	require.False(t, ok)
}

func TestNewLocal_Defaults(t *testing.T) {
	l := NewLocal(0, 0)
	require.Equal(t, 1, l.limit)
	require.Equal(t, time.Second, l.window)
	require.Equal(t, time.Second, l.cost)
}

func TestLocal_WaitingExactlyOneCostIsEnough(t *testing.T) {
	l := NewLocal(7, time.Second)
	now := time.Unix(1_700_000_000, 0)
	l.now = func() time.Time { return now }
	ctx := context.Background()

	for i := 0; i < 7; i++ {
		ok, _ := l.Allow(ctx, "alice")
		require.True(t, ok)
	}
	for i := 0; i < 20; i++ {
		now = now.Add(time.Second / 7)
		ok, _ := l.Allow(ctx, "alice")
		require.True(t, ok, "refill %d", i)
	}
}

func TestLocal_DropsIdleBuckets(t *testing.T) {
	l := NewLocal(2, time.Second)
	start := time.Unix(1_700_000_000, 0)
	now := start
	l.now = func() time.Time { return now }
	ctx := context.Background()

	ok, _ := l.Allow(ctx, "bob")
	require.True(t, ok)

	now = start.Add(900 * time.Millisecond)
	for i := 0; i < 2; i++ {
		ok, _ = l.Allow(ctx, "alice")
		require.True(t, ok)
	}

	// bob has refilled and is dropped; alice is still draining.
	now = start.Add(1100 * time.Millisecond)
	ok, _ = l.Allow(ctx, "carol")
	require.True(t, ok)
	require.Len(t, l.buckets, 2)
	require.Contains(t, l.buckets, "alice")
	require.Contains(t, l.buckets, "carol")
	require.NotContains(t, l.buckets, "bob")
}

func TestRedis_ErrorIsReported(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	defer client.Close()

	l := NewRedis(client, 5, time.Minute)
	ok, err := l.Allow(context.Background(), "alice")
	require.Error(t, err)
	require.False(t, ok)
}

func TestLimitKey(t *testing.T) {
	require.Equal(t, "ratelimit:send:abc", limitKey("abc"))
}
