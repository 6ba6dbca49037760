package state

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	apperrors "github.com/Proton-105/lessonnotes-bot/internal/errors"
)

const (
	sessionLockKeyPattern = "session:lock:%d"
	defaultLockTTL        = 5 * time.Second
)

// ErrSessionLocked indicates that another message for the same chat is still being handled.
var ErrSessionLocked = apperrors.NewStateError("session is locked", msgLocked)

// releaseLock deletes the lock only while it still carries our token.
var releaseLock = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

var transitionRecorder = func(from, to string) {}

// RegisterTransitionRecorder allows external packages to observe step transitions.
func RegisterTransitionRecorder(recorder func(from, to string)) {
	if recorder == nil {
		transitionRecorder = func(string, string) {}
		return
	}

	transitionRecorder = recorder
}

// Submitter hands a confirmed record to the generation pipeline. A nil error
// means the pipeline accepted it.
type Submitter interface {
	Submit(ctx context.Context, chatID int64, fields map[string]string) error
}

// IdentityRecorder remembers which chat owns a phone number.
type IdentityRecorder interface {
	Upsert(ctx context.Context, phone string, chatID int64) error
}

// Reply is what the user should see after an operation.
type Reply struct {
	Text string
	// Step is the step the session is on afterwards, StepStart once it has ended.
	Step Step
	// Rejected is set when the input or command changed nothing.
	Rejected bool
	// Ended is set when the session was deleted.
	Ended bool
}

// StateMachine drives one chat through the lesson notes flow.
type StateMachine interface {
	// Start creates or resets the session at the first collection step.
	Start(ctx context.Context, chatID int64) (*Reply, error)
	// Handle feeds free text into the current step.
	Handle(ctx context.Context, chatID int64, text string) (*Reply, error)
	// Confirm answers the summary with "yes" or "no". It is rejected without
	// changes unless the session is waiting for confirmation.
	Confirm(ctx context.Context, chatID int64, choice string) (*Reply, error)
	// Back returns to the previous step.
	Back(ctx context.Context, chatID int64) (*Reply, error)
	// Cancel deletes the session.
	Cancel(ctx context.Context, chatID int64) (*Reply, error)
	// Status describes the session without changing it.
	Status(ctx context.Context, chatID int64) (*Reply, error)
	GetSession(ctx context.Context, chatID int64) (*Session, error)
	ListSessions(ctx context.Context) ([]*Session, error)
}

// Option customises a machine.
type Option func(*machine)

// WithSubmitter sets where confirmed records are sent.
func WithSubmitter(s Submitter) Option {
	return func(m *machine) { m.submitter = s }
}

// WithIdentityRecorder sets where phone to chat mappings are written.
func WithIdentityRecorder(r IdentityRecorder) Option {
	return func(m *machine) { m.identities = r }
}

// WithLockTTL overrides the per-chat lock lifetime.
func WithLockTTL(ttl time.Duration) Option {
	return func(m *machine) {
		if ttl > 0 {
			m.lockTTL = ttl
		}
	}
}

// machine is a concrete implementation of StateMachine backed by Storage and Redis locking.
type machine struct {
	storage     Storage
	log         *slog.Logger
	redisClient *redis.Client
	submitter   Submitter
	identities  IdentityRecorder
	lockTTL     time.Duration
}

// NewStateMachine creates the conversation controller. A nil redisClient disables locking.
func NewStateMachine(storage Storage, log *slog.Logger, redisClient *redis.Client, opts ...Option) StateMachine {
	if log == nil {
		log = slog.Default()
	}

	m := &machine{
		storage:     storage,
		log:         log,
		redisClient: redisClient,
		lockTTL:     defaultLockTTL,
	}
	for _, opt := range opts {
		opt(m)
	}

	return m
}

func (m *machine) GetSession(ctx context.Context, chatID int64) (*Session, error) {
	return m.storage.Get(ctx, chatID)
}

func (m *machine) ListSessions(ctx context.Context) ([]*Session, error) {
	return m.storage.List(ctx)
}

func (m *machine) Start(ctx context.Context, chatID int64) (*Reply, error) {
	release, err := m.lock(ctx, chatID)
	if err != nil {
		return nil, err
	}
	defer release()

	return m.restart(ctx, chatID, StepStart)
}

func (m *machine) Handle(ctx context.Context, chatID int64, text string) (*Reply, error) {
	release, err := m.lock(ctx, chatID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := m.load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil || sess.Current == StepStart {
		return m.restart(ctx, chatID, StepStart)
	}
	if sess.Current == StepConfirm {
		return m.confirm(ctx, sess, text)
	}

	def, ok := Lookup(sess.Current)
	if !ok {
		m.log.Warn("session on unknown step, restarting", "chat_id", chatID, "step", sess.Current)
		return m.restart(ctx, chatID, sess.Current)
	}

	value, err := def.Validate(text)
	if err != nil {
		return &Reply{
			Text:     apperrors.UserMessage(err) + "\n\n" + def.Prompt,
			Step:     sess.Current,
			Rejected: true,
		}, nil
	}

	if def.Step == StepPhoneNumber && m.identities != nil {
		if err := m.identities.Upsert(ctx, value, chatID); err != nil {
			return nil, apperrors.NewStorageError(fmt.Errorf("record identity: %w", err))
		}
	}

	next := sess.Clone()
	next.Fields[def.Field] = value
	next.Previous = sess.Current
	next.Current = Next(sess.Current)

	if err := m.save(ctx, next); err != nil {
		return nil, err
	}
	transitionRecorder(string(sess.Current), string(next.Current))

	return promptFor(next), nil
}

func (m *machine) Confirm(ctx context.Context, chatID int64, choice string) (*Reply, error) {
	release, err := m.lock(ctx, chatID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := m.load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &Reply{Text: msgConfirmStale, Step: StepStart, Rejected: true}, nil
	}
	if sess.Current != StepConfirm {
		return &Reply{Text: msgConfirmStale, Step: sess.Current, Rejected: true}, nil
	}

	return m.confirm(ctx, sess, choice)
}

func (m *machine) Back(ctx context.Context, chatID int64) (*Reply, error) {
	release, err := m.lock(ctx, chatID)
	if err != nil {
		return nil, err
	}
	defer release()

	sess, err := m.load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &Reply{Text: msgCannotGoBack, Step: StepStart, Rejected: true}, nil
	}
	if sess.Current == StepStart || sess.Previous == StepStart || !sess.Previous.Valid() {
		return &Reply{Text: msgCannotGoBack, Step: sess.Current, Rejected: true}, nil
	}

	target := sess.Previous
	prev := sess.Clone()
	prev.Current = target
	prev.Previous = Prev(target)
	prev.Fields = make(map[string]string)
	for _, field := range fieldsBefore(target) {
		if value, ok := sess.Fields[field]; ok {
			prev.Fields[field] = value
		}
	}

	if err := m.save(ctx, prev); err != nil {
		return nil, err
	}
	transitionRecorder(string(sess.Current), string(target))

	return promptFor(prev), nil
}

func (m *machine) Cancel(ctx context.Context, chatID int64) (*Reply, error) {
	release, err := m.lock(ctx, chatID)
	if err != nil {
		return nil, err
	}
	defer release()

	if err := m.storage.Delete(ctx, chatID); err != nil {
		return nil, apperrors.NewStorageError(fmt.Errorf("delete session: %w", err))
	}

	return &Reply{Text: msgCanceled, Step: StepStart, Ended: true}, nil
}

func (m *machine) Status(ctx context.Context, chatID int64) (*Reply, error) {
	sess, err := m.load(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return &Reply{Text: Status(nil), Step: StepStart}, nil
	}

	return &Reply{Text: Status(sess), Step: sess.Current}, nil
}

func (m *machine) restart(ctx context.Context, chatID int64, from Step) (*Reply, error) {
	sess := NewSession(chatID)
	if err := m.save(ctx, sess); err != nil {
		return nil, err
	}
	transitionRecorder(string(from), string(sess.Current))

	def, _ := Lookup(sess.Current)
	return &Reply{Text: msgWelcome + "\n\n" + def.Prompt, Step: sess.Current}, nil
}

func (m *machine) confirm(ctx context.Context, sess *Session, text string) (*Reply, error) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "yes":
		reply := &Reply{Text: msgSubmitted, Step: StepStart, Ended: true}
		if err := m.submit(ctx, sess); err != nil {
			m.log.Error("submission failed", "chat_id", sess.ChatID, "error", err)
			reply.Text = msgSubmitFailed
		}

		// deleted regardless of outcome
		if err := m.storage.Delete(ctx, sess.ChatID); err != nil {
			m.log.Error("failed to delete session after submission", "chat_id", sess.ChatID, "error", err)
		}
		transitionRecorder(string(StepConfirm), string(StepStart))
		return reply, nil
	case "no":
		if err := m.storage.Delete(ctx, sess.ChatID); err != nil {
			return nil, apperrors.NewStorageError(fmt.Errorf("delete session: %w", err))
		}
		transitionRecorder(string(StepConfirm), string(StepStart))
		return &Reply{Text: msgCanceled, Step: StepStart, Ended: true}, nil
	default:
		return &Reply{Text: msgConfirmInvalid, Step: StepConfirm, Rejected: true}, nil
	}
}

func (m *machine) submit(ctx context.Context, sess *Session) error {
	if m.submitter == nil {
		return errors.New("no submitter configured")
	}
	return m.submitter.Submit(ctx, sess.ChatID, sess.Fields)
}

// load returns nil without error when the chat has no session.
func (m *machine) load(ctx context.Context, chatID int64) (*Session, error) {
	sess, err := m.storage.Get(ctx, chatID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil
		}
		return nil, apperrors.NewStorageError(fmt.Errorf("load session: %w", err))
	}
	if sess.Fields == nil {
		sess.Fields = make(map[string]string)
	}

	return sess, nil
}

func (m *machine) save(ctx context.Context, sess *Session) error {
	if err := m.storage.Save(ctx, sess); err != nil {
		return apperrors.NewStorageError(fmt.Errorf("save session: %w", err))
	}
	return nil
}

func promptFor(sess *Session) *Reply {
	if sess.Current == StepConfirm {
		return &Reply{Text: Summary(sess.Fields), Step: StepConfirm}
	}

	def, _ := Lookup(sess.Current)
	return &Reply{Text: def.Prompt, Step: sess.Current}
}

func (m *machine) lock(ctx context.Context, chatID int64) (func(), error) {
	if m.redisClient == nil {
		return func() {}, nil
	}

	key := fmt.Sprintf(sessionLockKeyPattern, chatID)
	token := uuid.NewString()

	acquired, err := m.redisClient.SetNX(ctx, key, token, m.lockTTL).Result()
	if err != nil {
		m.log.Error("failed to acquire session lock", "chat_id", chatID, "error", err)
		return nil, apperrors.NewStorageError(fmt.Errorf("acquire session lock: %w", err))
	}

	if !acquired {
		m.log.Warn("session lock already held", "chat_id", chatID)
		return nil, ErrSessionLocked
	}

	return func() {
		if err := releaseLock.Run(context.WithoutCancel(ctx), m.redisClient, []string{key}, token).Err(); err != nil {
			m.log.Error("failed to release session lock", "chat_id", chatID, "error", err)
		}
	}, nil
}
