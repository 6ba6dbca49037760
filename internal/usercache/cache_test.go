package usercache

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/lessonnotes-bot/internal/domain"
)

func TestCache_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cache := NewCache(client, 0)
	ctx := context.Background()

	got, err := cache.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	user := &domain.User{ID: 1, TelegramID: 42, FirstName: "Ama"}
	require.NoError(t, cache.Set(ctx, user))
	assert.Equal(t, DefaultTTL, mr.TTL("user:profile:42"))

	got, err = cache.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Ama", got.FirstName)

	mr.FastForward(DefaultTTL + time.Second)
	got, err = cache.Get(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, cache.Set(ctx, user))
	require.NoError(t, cache.Invalidate(ctx, 42))
	assert.False(t, mr.Exists("user:profile:42"))
}

func TestCache_NilClientIsNoop(t *testing.T) {
	cache := NewCache(nil, time.Minute)

	got, err := cache.Get(context.Background(), 1)
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, cache.Set(context.Background(), &domain.User{TelegramID: 1}))
	assert.NoError(t, cache.Invalidate(context.Background(), 1))
}
