package keyboard

import (
	"log/slog"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

const (
	ActionConfirm = "confirm"
	ConfirmYes    = "yes"
	ConfirmNo     = "no"
)

// Builder creates the keyboards attached to conversation replies.
type Builder struct {
	log *slog.Logger
}

// NewBuilder returns a new Builder instance.
func NewBuilder(log *slog.Logger) *Builder {
	if log == nil {
		log = slog.Default()
	}
	return &Builder{log: log}
}

// ConfirmButtons builds the yes/no buttons shown under the summary.
func (b *Builder) ConfirmButtons() *telebot.ReplyMarkup {
	markup, err := NewInlineKeyboard().
		AddRow(
			InlineButton{Text: "Yes ✅", Action: ActionConfirm, Data: ConfirmYes},
			InlineButton{Text: "No ❌", Action: ActionConfirm, Data: ConfirmNo},
		).
		Build()
	if err != nil {
		b.log.Error("failed to build confirm keyboard", "error", err)
		return nil
	}
	return markup
}

// SkipKeyboard offers the skip keyword for optional answers.
func (b *Builder) SkipKeyboard() *telebot.ReplyMarkup {
	return NewReplyKeyboard([]string{state.SkipKeyword})
}

// ForStep picks the keyboard that goes with a reply on step. It returns nil when
// the previous keyboard can stay.
func (b *Builder) ForStep(step state.Step, ended bool) *telebot.ReplyMarkup {
	switch {
	case ended:
		return Remove()
	case step == state.StepConfirm:
		return b.ConfirmButtons()
	case step == state.StepCustomInstructions:
		return b.SkipKeyboard()
	default:
		return nil
	}
}
