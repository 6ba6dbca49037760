package keyboard

import (
	telebot "gopkg.in/telebot.v3"
)

// NewReplyKeyboard builds a resized one-time reply keyboard with one row per slice.
func NewReplyKeyboard(rows ...[]string) *telebot.ReplyMarkup {
	markup := &telebot.ReplyMarkup{
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}

	built := make([]telebot.Row, 0, len(rows))
	for _, labels := range rows {
		if len(labels) == 0 {
			continue
		}
		buttons := make([]telebot.Btn, 0, len(labels))
		for _, label := range labels {
			buttons = append(buttons, markup.Text(label))
		}
		built = append(built, markup.Row(buttons...))
	}
	markup.Reply(built...)

	return markup
}

// Remove hides any reply keyboard the user still has open.
func Remove() *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{RemoveKeyboard: true}
}
