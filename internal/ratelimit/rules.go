package ratelimit

import (
	"errors"
	"fmt"
	"time"

	"github.com/Proton-105/lessonnotes-bot/pkg/config"
)

// Rules encapsulates configured rate limits and helper methods.
type Rules struct {
	config    config.RateLimitConfig
	whitelist map[int64]struct{}
}

func NewRules(cfg config.RateLimitConfig) *Rules {
	whitelist := make(map[int64]struct{}, len(cfg.Whitelist))
	for _, id := range cfg.Whitelist {
		whitelist[id] = struct{}{}
	}
	return &Rules{config: cfg, whitelist: whitelist}
}

// Enabled reports whether throttling is switched on.
func (r *Rules) Enabled() bool {
	return r != nil && r.config.Enabled
}

// IsWhitelisted returns true if chatID bypasses rate limits.
func (r *Rules) IsWhitelisted(chatID int64) bool {
	_, ok := r.whitelist[chatID]
	return ok
}

// PerUser returns the per-chat limit and window.
func (r *Rules) PerUser() (int, time.Duration, error) {
	rule := r.config.PerUser
	if rule.Window == "" {
		return 0, 0, errors.New("window duration is not set")
	}

	window, err := time.ParseDuration(rule.Window)
	if err != nil {
		return 0, 0, fmt.Errorf("parse window %q: %w", rule.Window, err)
	}
	if window <= 0 {
		return 0, 0, fmt.Errorf("window %q must be positive", rule.Window)
	}

	return rule.Limit, window, nil
}
