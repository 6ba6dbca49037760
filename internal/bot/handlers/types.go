package handlers

import (
	"context"

	telebot "gopkg.in/telebot.v3"
)

const requestContextKey = "request_ctx"

// Handler processes bot commands, text and callbacks.
type Handler func(c telebot.Context) error

// Middleware wraps handlers with additional behavior.
type Middleware func(Handler) Handler

// WithContext attaches a request scoped context to the update.
func WithContext(c telebot.Context, ctx context.Context) {
	if c == nil || ctx == nil {
		return
	}
	c.Set(requestContextKey, ctx)
}

// Context returns the request scoped context stored by WithContext, falling back to Background.
func Context(c telebot.Context) context.Context {
	if c == nil {
		return context.Background()
	}
	if ctx, ok := c.Get(requestContextKey).(context.Context); ok && ctx != nil {
		return ctx
	}
	return context.Background()
}
