package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/keyboard"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

// NewCancelHandler deletes the chat's session.
func NewCancelHandler(fsm state.StateMachine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := chatID(c)
		if !ok {
			log.Warn("cancel handler invoked without chat")
			return nil
		}

		reply, err := fsm.Cancel(Context(c), id)
		if err != nil {
			log.Error("failed to cancel session", slog.Int64("chat_id", id), slog.Any("error", err))
			return err
		}

		return sendReply(c, kb, reply)
	}
}
