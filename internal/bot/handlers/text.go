package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/keyboard"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

// NewTextHandler feeds free text into the current step of the conversation.
func NewTextHandler(fsm state.StateMachine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := chatID(c)
		if !ok {
			log.Warn("text handler invoked without chat")
			return nil
		}

		reply, err := fsm.Handle(Context(c), id, c.Text())
		if err != nil {
			return err
		}

		if reply.Rejected {
			log.Debug("input rejected", slog.Int64("chat_id", id), slog.String("step", reply.Step.String()))
		}
		return sendReply(c, kb, reply)
	}
}
