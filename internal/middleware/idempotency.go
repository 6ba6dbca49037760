// Package middleware holds cross-cutting wrappers for bot handlers and the ops HTTP server.
package middleware

import (
	"context"
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/handlers"
	"github.com/Proton-105/lessonnotes-bot/internal/idempotency"
)

// Idempotency ensures handlers execute at most once per Telegram update.
func Idempotency(manager idempotency.Manager, log *slog.Logger) handlers.Middleware {
	if manager == nil {
		return func(next handlers.Handler) handlers.Handler {
			return next
		}
	}
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			key := UpdateKey(c)
			if key == "" {
				return next(c)
			}

			result, err := manager.Execute(handlers.Context(c), key, func(context.Context) error {
				return next(c)
			})
			if err != nil {
				if errors.Is(err, idempotency.ErrRequestInProgress) {
					log.Debug("update already in progress", slog.String("key", key))
					return nil
				}
				return err
			}

			if result != nil && result.Duplicate {
				log.Info("skipping duplicate update", slog.String("key", key))
			}
			return nil
		}
	}
}

// UpdateKey derives the idempotency key of an update. Telegram redelivers an
// update with the same id, so the id alone identifies it.
func UpdateKey(c telebot.Context) string {
	if c == nil {
		return ""
	}

	if id := c.Update().ID; id != 0 {
		return idempotency.GenerateKey("update", id)
	}

	if cb := c.Callback(); cb != nil && cb.ID != "" {
		return idempotency.GenerateKey("callback", cb.ID)
	}

	return ""
}
