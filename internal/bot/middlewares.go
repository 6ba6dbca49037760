package bot

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"time"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/handlers"
	errors "github.com/Proton-105/lessonnotes-bot/internal/errors"
	"github.com/Proton-105/lessonnotes-bot/internal/user"
	"github.com/Proton-105/lessonnotes-bot/pkg/logger"
)

const (
	panicUserMessage   = "⚠️ Something went wrong. Please try again later."
	lastActiveDeadline = 5 * time.Second
)

// RecoveryMiddleware turns a panic into a critical StateError, reports it and
// tells the user something went wrong.
func RecoveryMiddleware(log *slog.Logger, errHandler *errors.Handler) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	report := func(c telebot.Context, r any) {
		log.Error("panic recovered in handler", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))

		msg := panicUserMessage
		if errHandler != nil {
			appErr := errors.NewStateError(fmt.Sprintf("panic recovered: %v", r), panicUserMessage)
			appErr.Severity = errors.SeverityCritical
			if m, _ := errHandler.Handle(handlers.Context(c), appErr); m != "" {
				msg = m
			}
		}

		if err := c.Send(msg); err != nil {
			log.Error("failed to notify user about panic", slog.Any("error", err))
		}
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) (err error) {
			defer func() {
				if r := recover(); r != nil {
					report(c, r)
					err = nil
				}
			}()

			return next(c)
		}
	}
}

// ErrorHandlingMiddleware centralizes error reporting and user messaging for handler failures.
func ErrorHandlingMiddleware(errHandler *errors.Handler) handlers.Middleware {
	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			userMsg := errors.UserMessage(err)
			if errHandler != nil {
				if msg, _ := errHandler.Handle(handlers.Context(c), err); msg != "" {
					userMsg = msg
				}
			}

			// a callback that was already answered falls back to a message
			if cb := c.Callback(); cb != nil {
				if c.Respond(&telebot.CallbackResponse{Text: userMsg, ShowAlert: true}) == nil {
					return nil
				}
			}

			_ = c.Send(userMsg)
			return nil
		}
	}
}

// LoggingMiddleware attaches a correlation id to the update and logs its handling.
func LoggingMiddleware(log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			start := time.Now()

			correlationID := ""
			if id := c.Update().ID; id != 0 {
				correlationID = "update-" + strconv.Itoa(id)
			}
			ctx := logger.WithCorrelationID(handlers.Context(c), correlationID)
			handlers.WithContext(c, ctx)

			chatID := int64(0)
			if chat := c.Chat(); chat != nil {
				chatID = chat.ID
			}

			action := "text"
			if cb := c.Callback(); cb != nil {
				action = cb.Data
			} else if cmd, ok := parseCommand(c.Text()); ok {
				action = cmd
			}

			attrs := []any{
				slog.Int64("chat_id", chatID),
				slog.String("action", action),
				slog.String("correlation_id", logger.CorrelationIDFromContext(ctx)),
			}

			log.Debug("handling update", attrs...)
			err := next(c)
			log.Info("handled update", append(attrs,
				slog.Duration("duration", time.Since(start)),
				slog.Any("error", err),
			)...)

			return err
		}
	}
}

// UserTrackingMiddleware makes sure the sender has a user record and bumps its
// last activity in the background. Failures are logged and never block the
// conversation.
func UserTrackingMiddleware(userService *user.Service, log *slog.Logger) handlers.Middleware {
	if log == nil {
		log = slog.Default()
	}

	return func(next handlers.Handler) handlers.Handler {
		if next == nil {
			return nil
		}

		return func(c telebot.Context) error {
			sender := c.Sender()
			if userService == nil || sender == nil {
				return next(c)
			}

			ctx := handlers.Context(c)
			if _, err := userService.GetOrCreate(ctx, sender); err != nil {
				log.Warn("failed to register user", slog.Int64("telegram_id", sender.ID), slog.Any("error", err))
			} else {
				go touchLastActive(context.WithoutCancel(ctx), userService, log, sender.ID)
			}

			return next(c)
		}
	}
}

func touchLastActive(ctx context.Context, userService *user.Service, log *slog.Logger, telegramID int64) {
	ctx, cancel := context.WithTimeout(ctx, lastActiveDeadline)
	defer cancel()

	if err := userService.UpdateLastActive(ctx, telegramID); err != nil {
		log.Debug("failed to update last activity", slog.Int64("telegram_id", telegramID), slog.Any("error", err))
	}
}
