package handlers

import (
	telebot "gopkg.in/telebot.v3"
)

const helpText = `I collect the details for your lesson notes one question at a time.

/start, /hello or /restart: begin again from the first question
/prev: go back to the previous question
/status: show what has been collected so far
/cancel: discard everything
/help: show this message`

// NewHelpHandler lists the available commands.
func NewHelpHandler() Handler {
	return func(c telebot.Context) error {
		return c.Send(helpText)
	}
}
