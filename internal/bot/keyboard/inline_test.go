package keyboard_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/keyboard"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

func TestInlineKeyboardBuilder(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		markup, err := keyboard.NewInlineKeyboard().
			AddRow(
				keyboard.InlineButton{Text: "Yes", Action: "confirm", Data: "yes"},
				keyboard.InlineButton{Text: "No", Action: "confirm", Data: "no"},
			).
			AddRow().
			AddRow(keyboard.InlineButton{Text: "Status", Action: "status"}).
			Build()
		require.NoError(t, err)
		require.NotNil(t, markup)

		require.Len(t, markup.InlineKeyboard, 2)
		assert.Len(t, markup.InlineKeyboard[0], 2)
		assert.Len(t, markup.InlineKeyboard[1], 1)
		assert.Equal(t, "confirm:no", markup.InlineKeyboard[0][1].Data)
		assert.Empty(t, markup.InlineKeyboard[0][1].Unique)
		assert.Equal(t, "status", markup.InlineKeyboard[1][0].Data)
	})

	t.Run("callback data overflow", func(t *testing.T) {
		_, err := keyboard.NewInlineKeyboard().
			AddRow(keyboard.InlineButton{
				Text:   "Too big",
				Action: "overflow",
				Data:   strings.Repeat("x", keyboard.CallbackDataLimitBytes),
			}).
			Build()
		assert.Error(t, err)
	})
}

func TestBuilder_ForStep(t *testing.T) {
	b := keyboard.NewBuilder(nil)

	confirm := b.ForStep(state.StepConfirm, false)
	require.NotNil(t, confirm)
	require.Len(t, confirm.InlineKeyboard, 1)
	assert.Equal(t, "confirm:yes", confirm.InlineKeyboard[0][0].Data)
	assert.Equal(t, "confirm:no", confirm.InlineKeyboard[0][1].Data)

	skip := b.ForStep(state.StepCustomInstructions, false)
	require.NotNil(t, skip)
	require.Len(t, skip.ReplyKeyboard, 1)
	assert.Equal(t, state.SkipKeyword, skip.ReplyKeyboard[0][0].Text)

	ended := b.ForStep(state.StepStart, true)
	require.NotNil(t, ended)
	assert.True(t, ended.RemoveKeyboard)

	assert.Nil(t, b.ForStep(state.StepTopic, false))
}
