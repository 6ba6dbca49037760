package handlers

import (
	"errors"
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/keyboard"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

const staleConfirmMessage = "This summary is no longer current."

// NewConfirmHandler answers the yes/no buttons under the summary. Buttons of a
// summary the session has since moved away from are answered with an alert.
func NewConfirmHandler(fsm state.StateMachine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		cb := c.Callback()
		if cb == nil {
			return nil
		}

		action, choice, err := keyboard.DecodeCallback(cb.Data)
		if err != nil || action != keyboard.ActionConfirm || (choice != keyboard.ConfirmYes && choice != keyboard.ConfirmNo) {
			log.Warn("unexpected confirm callback", slog.String("data", cb.Data))
			return c.Respond(&telebot.CallbackResponse{Text: "Unknown option", ShowAlert: true})
		}

		id, ok := chatID(c)
		if !ok {
			return c.Respond()
		}

		ctx := Context(c)
		sess, err := fsm.GetSession(ctx, id)
		if err != nil && !errors.Is(err, state.ErrSessionNotFound) {
			return err
		}
		if sess == nil || sess.Current != state.StepConfirm {
			log.Info("ignoring stale confirm callback", slog.Int64("chat_id", id))
			return c.Respond(&telebot.CallbackResponse{Text: staleConfirmMessage, ShowAlert: true})
		}

		if err := c.Respond(); err != nil {
			log.Warn("failed to acknowledge callback", slog.Int64("chat_id", id), slog.Any("error", err))
		}

		// the step is checked again under the session lock
		reply, err := fsm.Confirm(ctx, id, choice)
		if err != nil {
			return err
		}
		if reply.Rejected {
			return c.Send(reply.Text)
		}

		return sendReply(c, kb, reply)
	}
}
