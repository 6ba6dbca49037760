package repository

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentityRepository(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := NewIdentityRepository(client)
	repo.now = func() time.Time { return time.Date(2025, 2, 21, 9, 30, 0, 0, time.FixedZone("GMT+1", 3600)) }
	ctx := context.Background()

	_, err := repo.Resolve(ctx, "+233241234567")
	assert.ErrorIs(t, err, ErrIdentityNotFound)

	require.NoError(t, repo.Upsert(ctx, "+233241234567", 42))
	assert.Equal(t, "42", mr.HGet("identity:+233241234567", "chat_id"))
	assert.Equal(t, "2025-02-21T08:30:00Z", mr.HGet("identity:+233241234567", "updated_at"))
	assert.Zero(t, mr.TTL("identity:+233241234567"))

	require.NoError(t, repo.Upsert(ctx, "+233241234567", 77))
	chatID, err := repo.Resolve(ctx, "+233241234567")
	require.NoError(t, err)
	assert.Equal(t, int64(77), chatID)
}
