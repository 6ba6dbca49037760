package handlers

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/keyboard"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

// NewStartHandler resets the chat to the first collection step. It backs
// /start, /hello and /restart.
func NewStartHandler(fsm state.StateMachine, kb *keyboard.Builder, log *slog.Logger) Handler {
	if log == nil {
		log = slog.Default()
	}

	return func(c telebot.Context) error {
		id, ok := chatID(c)
		if !ok {
			log.Warn("start handler invoked without chat")
			return nil
		}

		reply, err := fsm.Start(Context(c), id)
		if err != nil {
			return err
		}

		log.Info("conversation started", slog.Int64("chat_id", id))
		return sendReply(c, kb, reply)
	}
}
