package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/keyboard"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

// NewBackHandler returns the chat to its previous step for /prev.
func NewBackHandler(fsm state.StateMachine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := chatID(c)
		if !ok {
			log.Warn("back handler invoked without chat")
			return nil
		}

		reply, err := fsm.Back(Context(c), id)
		if err != nil {
			return err
		}

		if reply.Rejected {
			return c.Send(reply.Text)
		}
		return sendReply(c, kb, reply)
	}
}
