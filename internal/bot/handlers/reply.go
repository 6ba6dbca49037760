package handlers

import (
	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/keyboard"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

// chatID resolves the conversation key of the update.
func chatID(c telebot.Context) (int64, bool) {
	if c == nil || c.Chat() == nil {
		return 0, false
	}
	return c.Chat().ID, true
}

// sendReply delivers a state machine reply with the keyboard that belongs to its step.
func sendReply(c telebot.Context, kb *keyboard.Builder, r *state.Reply) error {
	if r == nil {
		return nil
	}

	if kb != nil {
		if markup := kb.ForStep(r.Step, r.Ended); markup != nil {
			return c.Send(r.Text, markup)
		}
	}

	return c.Send(r.Text)
}
