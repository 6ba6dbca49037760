// Package idempotency suppresses repeated processing of the same Telegram update.
package idempotency

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const (
	defaultLease = 5 * time.Minute
	defaultTTL   = 24 * time.Hour
)

// ErrRequestInProgress indicates that another worker is handling the same key.
var ErrRequestInProgress = errors.New("request with this key is already in progress")

type Operation func(ctx context.Context) error

// Result describes how Execute treated the key.
type Result struct {
	// Duplicate is set when the key had already completed and fn was skipped.
	Duplicate bool
}

type Manager interface {
	Execute(ctx context.Context, key string, fn Operation) (*Result, error)
}

type manager struct {
	store Store
	ttl   time.Duration
	lease time.Duration
	log   *slog.Logger
}

// NewManager remembers completed keys for ttl (24h when zero).
func NewManager(store Store, ttl time.Duration, log *slog.Logger) Manager {
	if log == nil {
		log = slog.Default()
	}
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &manager{
		store: store,
		ttl:   ttl,
		lease: defaultLease,
		log:   log,
	}
}

// Execute runs fn at most once per key. A failed fn releases the key so a
// redelivery is processed again.
func (m *manager) Execute(ctx context.Context, key string, fn Operation) (*Result, error) {
	if fn == nil {
		return nil, errors.New("operation fn cannot be nil")
	}

	claimed, err := m.store.Claim(ctx, key, m.lease)
	if err != nil {
		return nil, err
	}

	if !claimed {
		status, err := m.store.Status(ctx, key)
		if err != nil {
			return nil, err
		}
		if status == StatusCompleted {
			return &Result{Duplicate: true}, nil
		}
		return nil, ErrRequestInProgress
	}

	if err := fn(ctx); err != nil {
		if rerr := m.store.Release(context.WithoutCancel(ctx), key); rerr != nil {
			m.log.Warn("failed to release idempotency key", slog.String("key", key), slog.Any("error", rerr))
		}
		return nil, err
	}

	if err := m.store.Complete(context.WithoutCancel(ctx), key, m.ttl); err != nil {
		m.log.Warn("failed to mark idempotency key completed", slog.String("key", key), slog.Any("error", err))
	}

	return &Result{}, nil
}
