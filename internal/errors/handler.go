package errors

import (
	"context"
	"errors"
	"log/slog"

	"github.com/getsentry/sentry-go"

	"github.com/Proton-105/lessonnotes-bot/pkg/logger"
)

// Handler logs errors with their metadata, reports serious ones to Sentry and
// resolves the message shown to the user.
type Handler struct {
	log           *slog.Logger
	sentryEnabled bool
	recorder      func(code string, severity Severity)
}

func NewHandler(log *slog.Logger, sentryEnabled bool) *Handler {
	if log == nil {
		log = slog.Default()
	}

	return &Handler{
		log:           log,
		sentryEnabled: sentryEnabled,
	}
}

// OnError registers a callback invoked for every handled error, used for metrics.
func (h *Handler) OnError(recorder func(code string, severity Severity)) {
	h.recorder = recorder
}

// Handle logs err and returns the user message and whether the user may retry.
func (h *Handler) Handle(ctx context.Context, err error) (string, bool) {
	if err == nil {
		return "", false
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr == nil {
		appErr = &AppError{
			Code:     "unknown",
			Message:  err.Error(),
			Severity: SeverityHigh,
			cause:    err,
		}
	}

	attrs := []any{
		slog.String("code", appErr.Code),
		slog.String("message", appErr.Message),
		slog.String("severity", string(appErr.Severity)),
		slog.Bool("retryable", appErr.Retryable),
	}
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		attrs = append(attrs, slog.String("correlation_id", correlationID))
	}

	if appErr.Severity == SeverityLow {
		h.log.Warn("application error", attrs...)
	} else {
		h.log.Error("application error", attrs...)
	}

	if h.recorder != nil {
		h.recorder(appErr.Code, appErr.Severity)
	}

	if h.sentryEnabled && (appErr.Severity == SeverityCritical || appErr.Severity == SeverityHigh) {
		h.sendToSentry(ctx, err, appErr)
	}

	userMessage := appErr.UserMessage
	if userMessage == "" {
		userMessage = defaultUserMessage
	}

	return userMessage, appErr.Retryable
}

func (h *Handler) sendToSentry(ctx context.Context, err error, appErr *AppError) {
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}

	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("code", appErr.Code)
		scope.SetTag("severity", string(appErr.Severity))
		if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
			scope.SetTag("correlation_id", correlationID)
		}

		hub.CaptureException(err)
	})
}
