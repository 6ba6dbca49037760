package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/Proton-105/lessonnotes-bot/pkg/metrics"
)

// AdaptiveLimiter delegates to a primary (Redis) limiter and falls back to a
// stricter in-memory limiter when the primary fails.
type AdaptiveLimiter struct {
	primary  Limiter
	fallback Limiter
	log      *slog.Logger
}

var _ Limiter = (*AdaptiveLimiter)(nil)

func NewAdaptiveLimiter(primary, fallback Limiter, log *slog.Logger) *AdaptiveLimiter {
	if log == nil {
		log = slog.Default()
	}

	return &AdaptiveLimiter{
		primary:  primary,
		fallback: fallback,
		log:      log,
	}
}

// Check halves the limit while running on the fallback.
func (a *AdaptiveLimiter) Check(ctx context.Context, key string, limit int, window time.Duration) (*Result, error) {
	result, err := a.primary.Check(ctx, key, limit, window)
	if err == nil {
		metrics.RecordRateLimitCheck(resultLabel(result))
		return result, nil
	}

	metrics.RecordRateLimitCheck("error")
	a.log.Warn("redis limiter failed, falling back to in-memory", slog.String("key", key), slog.Any("error", err))

	fallbackLimit := limit / 2
	if fallbackLimit <= 0 {
		fallbackLimit = 1
	}

	result, err = a.fallback.Check(ctx, key, fallbackLimit, window)
	if err != nil {
		return nil, err
	}
	metrics.RecordRateLimitCheck(resultLabel(result))

	return result, nil
}

func resultLabel(r *Result) string {
	if r.Allowed {
		return "allowed"
	}
	return "limited"
}
