package state

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix   = "session:"
	sessionScanPattern = "session:*"

	hashState     = "state"
	hashPrevState = "prev_state"
	hashUpdatedAt = "updated_at"
)

// RedisStorage keeps each session in a hash at session:{chat_id}. The hash holds
// state, prev_state, updated_at and one entry per collected field. Sessions have
// no TTL; they live until completed or cancelled.
type RedisStorage struct {
	client *redis.Client
	log    *slog.Logger
	now    func() time.Time
}

// NewRedisStorage initializes a Redis-backed Storage implementation.
func NewRedisStorage(client *redis.Client, log *slog.Logger) *RedisStorage {
	if log == nil {
		log = slog.Default()
	}

	return &RedisStorage{
		client: client,
		log:    log,
		now:    time.Now,
	}
}

// Get returns the stored session or ErrSessionNotFound when absent.
func (s *RedisStorage) Get(ctx context.Context, chatID int64) (*Session, error) {
	values, err := s.client.HGetAll(ctx, sessionKey(chatID)).Result()
	if err != nil {
		s.log.Error("failed to get session from redis", "chat_id", chatID, "error", err)
		return nil, err
	}
	if len(values) == 0 {
		return nil, ErrSessionNotFound
	}

	return decodeSession(chatID, values), nil
}

// Save replaces the whole hash in one transaction so stale fields never survive.
func (s *RedisStorage) Save(ctx context.Context, sess *Session) error {
	sess.UpdatedAt = s.now().UTC()

	key := sessionKey(sess.ChatID)
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, encodeSession(sess))

	if _, err := pipe.Exec(ctx); err != nil {
		s.log.Error("failed to save session in redis", "chat_id", sess.ChatID, "error", err)
		return err
	}

	return nil
}

// Delete removes the stored session for the given chat.
func (s *RedisStorage) Delete(ctx context.Context, chatID int64) error {
	if err := s.client.Del(ctx, sessionKey(chatID)).Err(); err != nil {
		s.log.Error("failed to delete session", "chat_id", chatID, "error", err)
		return err
	}

	return nil
}

// List retrieves every stored session by scanning Redis keys.
func (s *RedisStorage) List(ctx context.Context) ([]*Session, error) {
	var (
		cursor uint64
		result []*Session
	)

	for {
		keys, nextCursor, err := s.client.Scan(ctx, cursor, sessionScanPattern, 100).Result()
		if err != nil {
			s.log.Error("failed to scan sessions", "error", err)
			return nil, err
		}

		for _, key := range keys {
			chatID, err := strconv.ParseInt(strings.TrimPrefix(key, sessionKeyPrefix), 10, 64)
			if err != nil {
				continue
			}

			values, err := s.client.HGetAll(ctx, key).Result()
			if err != nil {
				s.log.Error("failed to fetch session", "key", key, "error", err)
				return nil, err
			}
			if len(values) == 0 {
				continue
			}

			result = append(result, decodeSession(chatID, values))
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	return result, nil
}

func encodeSession(sess *Session) map[string]any {
	values := make(map[string]any, len(sess.Fields)+3)
	for field, value := range sess.Fields {
		values[field] = value
	}
	values[hashState] = string(sess.Current)
	values[hashPrevState] = string(sess.Previous)
	values[hashUpdatedAt] = sess.UpdatedAt.Format(time.RFC3339Nano)

	return values
}

func decodeSession(chatID int64, values map[string]string) *Session {
	sess := &Session{
		ChatID:   chatID,
		Current:  Step(values[hashState]),
		Previous: Step(values[hashPrevState]),
		Fields:   make(map[string]string),
	}
	if ts, err := time.Parse(time.RFC3339Nano, values[hashUpdatedAt]); err == nil {
		sess.UpdatedAt = ts
	}

	for _, field := range fieldNames() {
		if value, ok := values[field]; ok {
			sess.Fields[field] = value
		}
	}

	return sess
}

func sessionKey(chatID int64) string {
	return fmt.Sprintf("%s%d", sessionKeyPrefix, chatID)
}
