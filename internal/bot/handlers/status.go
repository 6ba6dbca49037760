package handlers

import (
	"fmt"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/repository"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

// NewStatusHandler returns the /status handler. history may be nil when no
// database is configured.
func NewStatusHandler(fsm state.StateMachine, history repository.SubmissionRepository, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := chatID(c)
		if !ok {
			return nil
		}

		ctx := Context(c)
		reply, err := fsm.Status(ctx, id)
		if err != nil {
			return err
		}

		message := reply.Text
		if history != nil {
			latest, err := history.LatestByChat(ctx, id, 1)
			if err != nil {
				log.Warn("status handler failed to load submissions", slog.Int64("chat_id", id), slog.Any("error", err))
			} else if len(latest) > 0 {
				last := latest[0]
				message += fmt.Sprintf(
					"\n\nLast submission: %s, %s (%s) on %s",
					last.Subject,
					last.Topic,
					last.Status,
					last.CreatedAt.Format("January 2, 2006 15:04"),
				)
			}
		}

		return c.Send(message)
	}
}
