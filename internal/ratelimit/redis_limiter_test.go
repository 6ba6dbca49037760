package ratelimit

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/lessonnotes-bot/pkg/config"
)

type clock struct {
	t time.Time
}

func (c *clock) now() time.Time { return c.t }

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })

	return client, mr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRedisLimiter_SlidingWindow(t *testing.T) {
	client, mr := setupTestRedis(t)
	clk := &clock{t: time.Date(2025, 2, 21, 10, 0, 0, 0, time.UTC)}

	limiter := NewRedisLimiter(client, testLogger())
	limiter.now = clk.now
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "chat:1", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 1-i, result.Remaining)
		clk.t = clk.t.Add(10 * time.Second)
	}

	result, err := limiter.Check(ctx, "chat:1", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
	assert.Equal(t, 40, result.RetryAfter(clk.t))

	members, err := mr.ZMembers("ratelimit:chat:1")
	require.NoError(t, err)
	assert.Len(t, members, 2)

	clk.t = clk.t.Add(41 * time.Second)
	result, err = limiter.Check(ctx, "chat:1", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	other, err := limiter.Check(ctx, "chat:2", 2, time.Minute)
	require.NoError(t, err)
	assert.True(t, other.Allowed)
}

func TestRedisLimiter_ZeroLimitDenies(t *testing.T) {
	client, _ := setupTestRedis(t)

	result, err := NewRedisLimiter(client, testLogger()).Check(context.Background(), "chat:1", 0, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)
}

func TestMemoryLimiter(t *testing.T) {
	clk := &clock{t: time.Date(2025, 2, 21, 10, 0, 0, 0, time.UTC)}
	limiter := NewMemoryLimiter()
	limiter.now = clk.now
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		result, err := limiter.Check(ctx, "chat:1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "chat:1", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed)

	clk.t = clk.t.Add(time.Minute + time.Second)
	result, err = limiter.Check(ctx, "chat:1", 3, time.Minute)
	require.NoError(t, err)
	assert.True(t, result.Allowed)

	clk.t = clk.t.Add(time.Hour)
	assert.Equal(t, 1, limiter.Cleanup(time.Minute))
}

func TestAdaptiveLimiter_FallsBackWhenRedisFails(t *testing.T) {
	client, mr := setupTestRedis(t)
	mr.Close()

	limiter := NewAdaptiveLimiter(NewRedisLimiter(client, testLogger()), NewMemoryLimiter(), testLogger())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		result, err := limiter.Check(ctx, "chat:1", 4, time.Minute)
		require.NoError(t, err)
		assert.True(t, result.Allowed)
	}

	result, err := limiter.Check(ctx, "chat:1", 4, time.Minute)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "fallback halves the limit")
}

func TestRules(t *testing.T) {
	rules := NewRules(config.RateLimitConfig{
		Enabled:   true,
		PerUser:   config.RateLimitRule{Limit: 30, Window: "1m"},
		Whitelist: []int64{7},
	})

	assert.True(t, rules.Enabled())
	assert.True(t, rules.IsWhitelisted(7))
	assert.False(t, rules.IsWhitelisted(8))

	limit, window, err := rules.PerUser()
	require.NoError(t, err)
	assert.Equal(t, 30, limit)
	assert.Equal(t, time.Minute, window)

	for _, bad := range []string{"", "soon", "-1m"} {
		_, _, err := NewRules(config.RateLimitConfig{PerUser: config.RateLimitRule{Limit: 1, Window: bad}}).PerUser()
		assert.Error(t, err, bad)
	}

	var nilRules *Rules
	assert.False(t, nilRules.Enabled())
}
