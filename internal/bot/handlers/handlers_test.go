package handlers

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/lessonnotes-bot/internal/bot/keyboard"
	"github.com/Proton-105/lessonnotes-bot/internal/domain"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
	"github.com/Proton-105/lessonnotes-bot/internal/testutil"
)

const testChatID = int64(7)

var answers = []string{
	"Mathematics",
	"Basic 4",
	"Fractions",
	"21-02-2025",
	"A:28 B:30",
	"70 minutes",
	"Monday, Wednesday",
	"6",
	"+233241234567",
	"ama.mensah@example.com",
	"skip",
}

type submitterMock struct {
	mock.Mock
}

func (m *submitterMock) Submit(ctx context.Context, chatID int64, fields map[string]string) error {
	return m.Called(ctx, chatID, fields).Error(0)
}

type historyMock struct {
	mock.Mock
}

func (m *historyMock) Create(ctx context.Context, s *domain.Submission) error {
	return m.Called(ctx, s).Error(0)
}

func (m *historyMock) LatestByChat(ctx context.Context, chatID int64, limit int) ([]*domain.Submission, error) {
	args := m.Called(ctx, chatID, limit)
	subs, _ := args.Get(0).([]*domain.Submission)
	return subs, args.Error(1)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	fsm     state.StateMachine
	storage *state.MemoryStorage
	kb      *keyboard.Builder
	log     *slog.Logger
}

func newFixture(opts ...state.Option) *fixture {
	log := discardLogger()
	storage := state.NewMemoryStorage()
	return &fixture{
		fsm:     state.NewStateMachine(storage, log, nil, opts...),
		storage: storage,
		kb:      keyboard.NewBuilder(log),
		log:     log,
	}
}

func (f *fixture) answerAll(t *testing.T) *testutil.FakeContext {
	t.Helper()

	require.NoError(t, NewStartHandler(f.fsm, f.kb, f.log)(testutil.NewTextContext(testChatID, "/start")))

	text := NewTextHandler(f.fsm, f.kb, f.log)
	var c *testutil.FakeContext
	for _, answer := range answers {
		c = testutil.NewTextContext(testChatID, answer)
		require.NoError(t, text(c))
	}
	return c
}

func TestStartHandler_SendsWelcomeAndFirstPrompt(t *testing.T) {
	f := newFixture()
	c := testutil.NewTextContext(testChatID, "/start")

	require.NoError(t, NewStartHandler(f.fsm, f.kb, f.log)(c))

	require.Len(t, c.Sent(), 1)
	assert.Contains(t, c.Last().Text, "What's the subject?")
	assert.Nil(t, c.Last().Markup())

	sess, err := f.storage.Get(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Equal(t, state.StepSubject, sess.Current)
}

func TestTextHandler_RejectsAndReprompts(t *testing.T) {
	f := newFixture()
	require.NoError(t, NewStartHandler(f.fsm, f.kb, f.log)(testutil.NewTextContext(testChatID, "/start")))

	c := testutil.NewTextContext(testChatID, "   ")
	require.NoError(t, NewTextHandler(f.fsm, f.kb, f.log)(c))

	assert.Contains(t, c.Last().Text, "What's the subject?")
	sess, err := f.storage.Get(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Equal(t, state.StepSubject, sess.Current)
}

func TestTextHandler_KeyboardsFollowSteps(t *testing.T) {
	f := newFixture()
	require.NoError(t, NewStartHandler(f.fsm, f.kb, f.log)(testutil.NewTextContext(testChatID, "/start")))

	text := NewTextHandler(f.fsm, f.kb, f.log)
	for _, answer := range answers[:len(answers)-2] {
		require.NoError(t, text(testutil.NewTextContext(testChatID, answer)))
	}

	email := testutil.NewTextContext(testChatID, answers[len(answers)-2])
	require.NoError(t, text(email))
	skip := email.Last().Markup()
	require.NotNil(t, skip)
	require.Len(t, skip.ReplyKeyboard, 1)
	assert.Equal(t, state.SkipKeyword, skip.ReplyKeyboard[0][0].Text)

	last := testutil.NewTextContext(testChatID, answers[len(answers)-1])
	require.NoError(t, text(last))
	assert.Contains(t, last.Last().Text, "Please confirm your lesson details")
	confirm := last.Last().Markup()
	require.NotNil(t, confirm)
	assert.Equal(t, "confirm:yes", confirm.InlineKeyboard[0][0].Data)
}

func TestConfirmHandler_Yes(t *testing.T) {
	submitter := new(submitterMock)
	submitter.On("Submit", mock.Anything, testChatID, mock.Anything).Return(nil).Once()

	f := newFixture(state.WithSubmitter(submitter))
	f.answerAll(t)

	c := testutil.NewCallbackContext(testChatID, "confirm:yes")
	require.NoError(t, NewConfirmHandler(f.fsm, f.kb, f.log)(c))

	require.Len(t, c.Responses(), 1)
	assert.Contains(t, c.Last().Text, "Lesson notes are being generated")
	require.NotNil(t, c.Last().Markup())
	assert.True(t, c.Last().Markup().RemoveKeyboard)

	_, err := f.storage.Get(context.Background(), testChatID)
	assert.ErrorIs(t, err, state.ErrSessionNotFound)
	submitter.AssertExpectations(t)
}

func TestConfirmHandler_No(t *testing.T) {
	submitter := new(submitterMock)
	f := newFixture(state.WithSubmitter(submitter))
	f.answerAll(t)

	c := testutil.NewCallbackContext(testChatID, "confirm:no")
	require.NoError(t, NewConfirmHandler(f.fsm, f.kb, f.log)(c))

	assert.Contains(t, c.Last().Text, "Canceled")
	submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestConfirmHandler_UnknownData(t *testing.T) {
	f := newFixture()
	f.answerAll(t)

	c := testutil.NewCallbackContext(testChatID, "confirm:maybe")
	require.NoError(t, NewConfirmHandler(f.fsm, f.kb, f.log)(c))

	require.Len(t, c.Responses(), 1)
	assert.True(t, c.Responses()[0].ShowAlert)
	assert.Empty(t, c.Sent())

	sess, err := f.storage.Get(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Equal(t, state.StepConfirm, sess.Current)
}

func TestConfirmHandler_StaleButtonLeavesSessionAlone(t *testing.T) {
	testCases := []struct {
		name     string
		command  string
		wantStep state.Step
	}{
		{name: "after going back", command: "/prev", wantStep: state.StepCustomInstructions},
		{name: "after restarting", command: "/start", wantStep: state.StepSubject},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			submitter := new(submitterMock)
			f := newFixture(state.WithSubmitter(submitter))
			f.answerAll(t)

			cmd := testutil.NewTextContext(testChatID, tc.command)
			if tc.command == "/prev" {
				require.NoError(t, NewBackHandler(f.fsm, f.kb, f.log)(cmd))
			} else {
				require.NoError(t, NewStartHandler(f.fsm, f.kb, f.log)(cmd))
			}
			before, err := f.storage.Get(context.Background(), testChatID)
			require.NoError(t, err)

			c := testutil.NewCallbackContext(testChatID, "confirm:yes")
			require.NoError(t, NewConfirmHandler(f.fsm, f.kb, f.log)(c))

			require.Len(t, c.Responses(), 1)
			assert.True(t, c.Responses()[0].ShowAlert)
			assert.Empty(t, c.Sent())

			after, err := f.storage.Get(context.Background(), testChatID)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStep, after.Current)
			assert.Equal(t, before.Fields, after.Fields)
			submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestConfirmHandler_WithoutSession(t *testing.T) {
	f := newFixture()

	c := testutil.NewCallbackContext(testChatID, "confirm:no")
	require.NoError(t, NewConfirmHandler(f.fsm, f.kb, f.log)(c))

	require.Len(t, c.Responses(), 1)
	assert.True(t, c.Responses()[0].ShowAlert)
	assert.Empty(t, c.Sent())
}

func TestBackHandler(t *testing.T) {
	f := newFixture()
	back := NewBackHandler(f.fsm, f.kb, f.log)

	c := testutil.NewTextContext(testChatID, "/prev")
	require.NoError(t, back(c))
	assert.Equal(t, "You can't go back any further.", c.Last().Text)

	require.NoError(t, NewStartHandler(f.fsm, f.kb, f.log)(testutil.NewTextContext(testChatID, "/start")))
	text := NewTextHandler(f.fsm, f.kb, f.log)
	require.NoError(t, text(testutil.NewTextContext(testChatID, "Mathematics")))
	require.NoError(t, text(testutil.NewTextContext(testChatID, "Basic 4")))

	c = testutil.NewTextContext(testChatID, "/prev")
	require.NoError(t, back(c))
	assert.Contains(t, c.Last().Text, "class level")

	sess, err := f.storage.Get(context.Background(), testChatID)
	require.NoError(t, err)
	assert.Equal(t, state.StepClassLevel, sess.Current)
	assert.NotContains(t, sess.Fields, state.FieldClassLevel)
}

func TestCancelHandler_Idempotent(t *testing.T) {
	f := newFixture()
	cancel := NewCancelHandler(f.fsm, f.kb, f.log)

	for i := 0; i < 2; i++ {
		c := testutil.NewTextContext(testChatID, "/cancel")
		require.NoError(t, cancel(c))
		assert.Contains(t, c.Last().Text, "Canceled")
		assert.True(t, c.Last().Markup().RemoveKeyboard)
	}
}

func TestStatusHandler(t *testing.T) {
	t.Run("no session without history", func(t *testing.T) {
		f := newFixture()
		c := testutil.NewTextContext(testChatID, "/status")

		require.NoError(t, NewStatusHandler(f.fsm, nil, f.log)(c))
		assert.Contains(t, c.Last().Text, "No lesson notes in progress")
	})

	t.Run("appends last submission", func(t *testing.T) {
		f := newFixture()
		require.NoError(t, NewStartHandler(f.fsm, f.kb, f.log)(testutil.NewTextContext(testChatID, "/start")))

		history := new(historyMock)
		history.On("LatestByChat", mock.Anything, testChatID, 1).Return([]*domain.Submission{{
			ChatID:    testChatID,
			Subject:   "Science",
			Topic:     "Plants",
			Status:    domain.SubmissionAccepted,
			CreatedAt: time.Date(2025, 2, 21, 9, 30, 0, 0, time.UTC),
		}}, nil)

		c := testutil.NewTextContext(testChatID, "/status")
		require.NoError(t, NewStatusHandler(f.fsm, history, f.log)(c))

		assert.Contains(t, c.Last().Text, "step 1 of 11")
		assert.Contains(t, c.Last().Text, "Last submission: Science, Plants (accepted) on February 21, 2025 09:30")
		history.AssertExpectations(t)
	})
}

func TestHelpHandler(t *testing.T) {
	c := testutil.NewTextContext(testChatID, "/help")
	require.NoError(t, NewHelpHandler()(c))
	assert.Contains(t, c.Last().Text, "/prev")
}

func TestContext_Fallback(t *testing.T) {
	c := testutil.NewTextContext(testChatID, "hi")
	assert.Equal(t, context.Background(), Context(c))

	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "v")
	WithContext(c, ctx)
	assert.Equal(t, "v", Context(c).Value(key{}))
}
