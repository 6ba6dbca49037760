package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"gopkg.in/telebot.v3"

	apperrors "github.com/Proton-105/lessonnotes-bot/internal/errors"
	"github.com/Proton-105/lessonnotes-bot/internal/ratelimit"
)

// RateLimitMiddleware enforces per-chat rate limits for incoming Telegram updates.
type RateLimitMiddleware struct {
	limiter ratelimit.Limiter
	rules   *ratelimit.Rules
	log     *slog.Logger
	now     func() time.Time
}

// NewRateLimitMiddleware constructs a rate-limit middleware component.
func NewRateLimitMiddleware(limiter ratelimit.Limiter, rules *ratelimit.Rules, log *slog.Logger) *RateLimitMiddleware {
	if log == nil {
		log = slog.Default()
	}

	return &RateLimitMiddleware{
		limiter: limiter,
		rules:   rules,
		log:     log,
		now:     time.Now,
	}
}

// Handle returns a telebot middleware that enforces per-chat rate limits.
// Limiter failures let the update through.
func (m *RateLimitMiddleware) Handle(next telebot.HandlerFunc) telebot.HandlerFunc {
	return func(c telebot.Context) error {
		if m.limiter == nil || !m.rules.Enabled() {
			return next(c)
		}

		chat := c.Chat()
		if chat == nil {
			return next(c)
		}

		chatID := chat.ID
		if m.rules.IsWhitelisted(chatID) {
			return next(c)
		}

		limit, window, err := m.rules.PerUser()
		if err != nil {
			m.log.Error("failed to load per-chat rate limit", slog.Int64("chat_id", chatID), slog.Any("error", err))
			return next(c)
		}

		key := fmt.Sprintf("chat:%d", chatID)
		result, err := m.limiter.Check(context.Background(), key, limit, window)
		if err != nil {
			m.log.Warn("rate limiter error", slog.Int64("chat_id", chatID), slog.Any("error", err))
			return next(c)
		}

		if !result.Allowed {
			m.log.Warn("rate limit exceeded", slog.Int64("chat_id", chatID))
			limitErr := apperrors.NewRateLimitError(result.RetryAfter(m.now()))
			if cb := c.Callback(); cb != nil {
				return c.Respond(&telebot.CallbackResponse{Text: limitErr.UserMessage, ShowAlert: true})
			}
			return c.Send(limitErr.UserMessage)
		}

		return next(c)
	}
}
