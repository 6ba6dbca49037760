// Package repository implements persistence for identities, users and submissions.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const identityKeyPattern = "identity:%s"

// ErrIdentityNotFound indicates that no chat has registered the phone number.
var ErrIdentityNotFound = errors.New("identity not found")

// IdentityRepository maps phone numbers to the chat that registered them so the
// notifier can deliver the download link. Entries carry no TTL.
type IdentityRepository struct {
	client *goredis.Client
	now    func() time.Time
}

// NewIdentityRepository creates a Redis-backed identity map.
func NewIdentityRepository(client *goredis.Client) *IdentityRepository {
	return &IdentityRepository{client: client, now: time.Now}
}

// Upsert points phone at chatID, replacing any previous owner.
func (r *IdentityRepository) Upsert(ctx context.Context, phone string, chatID int64) error {
	key := fmt.Sprintf(identityKeyPattern, phone)

	if err := r.client.HSet(ctx, key,
		"chat_id", chatID,
		"updated_at", r.now().UTC().Format(time.RFC3339),
	).Err(); err != nil {
		return fmt.Errorf("set identity in redis: %w", err)
	}

	return nil
}

// Resolve returns the chat registered for phone. The bot only writes the map;
// Resolve is the lookup the external notifier performs against the same keys
// to find which chat receives the finished notes.
func (r *IdentityRepository) Resolve(ctx context.Context, phone string) (int64, error) {
	key := fmt.Sprintf(identityKeyPattern, phone)

	value, err := r.client.HGet(ctx, key, "chat_id").Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return 0, ErrIdentityNotFound
		}
		return 0, fmt.Errorf("get identity from redis: %w", err)
	}

	chatID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse identity chat id: %w", err)
	}

	return chatID, nil
}
