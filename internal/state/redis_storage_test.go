package state

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStorage(t *testing.T) (*RedisStorage, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	storage := NewRedisStorage(client, testLogger())
	storage.now = func() time.Time { return time.Date(2025, 2, 21, 10, 0, 0, 0, time.UTC) }
	return storage, mr
}

func TestRedisStorage_SaveAndGet(t *testing.T) {
	storage, mr := newRedisStorage(t)
	ctx := context.Background()

	sess := &Session{
		ChatID:   7,
		Current:  StepTopic,
		Previous: StepClassLevel,
		Fields: map[string]string{
			FieldSubject:    "Science",
			FieldClassLevel: "Basic 6",
		},
	}
	require.NoError(t, storage.Save(ctx, sess))

	assert.Equal(t, "TOPIC", mr.HGet("session:7", "state"))
	assert.Equal(t, "CLASS_LEVEL", mr.HGet("session:7", "prev_state"))
	assert.Equal(t, "Science", mr.HGet("session:7", "subject"))
	assert.Equal(t, "2025-02-21T10:00:00Z", mr.HGet("session:7", "updated_at"))
	assert.Zero(t, mr.TTL("session:7"))

	got, err := storage.Get(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.ChatID)
	assert.Equal(t, StepTopic, got.Current)
	assert.Equal(t, StepClassLevel, got.Previous)
	assert.Equal(t, sess.Fields, got.Fields)
	assert.True(t, got.UpdatedAt.Equal(storage.now()))
}

func TestRedisStorage_SaveDropsStaleFields(t *testing.T) {
	storage, mr := newRedisStorage(t)
	ctx := context.Background()

	require.NoError(t, storage.Save(ctx, &Session{
		ChatID:   7,
		Current:  StepWeekEnding,
		Previous: StepTopic,
		Fields: map[string]string{
			FieldSubject:    "Science",
			FieldClassLevel: "Basic 6",
			FieldTopic:      "Plants",
		},
	}))
	require.NoError(t, storage.Save(ctx, &Session{
		ChatID:   7,
		Current:  StepTopic,
		Previous: StepClassLevel,
		Fields: map[string]string{
			FieldSubject:    "Science",
			FieldClassLevel: "Basic 6",
		},
	}))

	assert.Empty(t, mr.HGet("session:7", "topic"))

	got, err := storage.Get(ctx, 7)
	require.NoError(t, err)
	assert.NotContains(t, got.Fields, FieldTopic)
	assert.Len(t, got.Fields, 2)
}

func TestRedisStorage_GetMissing(t *testing.T) {
	storage, _ := newRedisStorage(t)

	_, err := storage.Get(context.Background(), 99)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestRedisStorage_DeleteAndList(t *testing.T) {
	storage, mr := newRedisStorage(t)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		require.NoError(t, storage.Save(ctx, NewSession(id)))
	}
	require.NoError(t, mr.Set("session:lock:2", "token"))

	require.NoError(t, storage.Delete(ctx, 3))
	require.NoError(t, storage.Delete(ctx, 3))

	sessions, err := storage.List(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	ids := []int64{sessions[0].ChatID, sessions[1].ChatID}
	assert.ElementsMatch(t, []int64{1, 2}, ids)
	for _, sess := range sessions {
		assert.Equal(t, StepSubject, sess.Current)
		assert.Equal(t, StepStart, sess.Previous)
	}
}

func TestMemoryStorage_IsolatesCopies(t *testing.T) {
	storage := NewMemoryStorage()
	ctx := context.Background()

	sess := NewSession(5)
	sess.Fields[FieldSubject] = "History"
	require.NoError(t, storage.Save(ctx, sess))

	sess.Fields[FieldSubject] = "changed"
	got, err := storage.Get(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "History", got.Fields[FieldSubject])

	got.Fields[FieldTopic] = "leak"
	again, err := storage.Get(ctx, 5)
	require.NoError(t, err)
	assert.NotContains(t, again.Fields, FieldTopic)
}
