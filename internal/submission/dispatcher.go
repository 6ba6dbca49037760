package submission

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Proton-105/lessonnotes-bot/internal/domain"
	"github.com/Proton-105/lessonnotes-bot/internal/repository"
	"github.com/Proton-105/lessonnotes-bot/internal/state"
	"github.com/Proton-105/lessonnotes-bot/pkg/metrics"
)

// Outcome is the result of a single dispatch attempt.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeFailed   Outcome = "failed"
)

// Dispatcher sends confirmed sessions to the generator once and records the attempt.
type Dispatcher struct {
	generator Generator
	ledger    repository.SubmissionRepository
	log       *slog.Logger
	now       func() time.Time
}

// NewDispatcher wires a dispatcher. ledger may be nil when PostgreSQL is not configured.
func NewDispatcher(generator Generator, ledger repository.SubmissionRepository, log *slog.Logger) *Dispatcher {
	if log == nil {
		log = slog.Default()
	}

	return &Dispatcher{
		generator: generator,
		ledger:    ledger,
		log:       log,
		now:       time.Now,
	}
}

var _ state.Submitter = (*Dispatcher)(nil)

// Submit implements state.Submitter.
func (d *Dispatcher) Submit(ctx context.Context, chatID int64, fields map[string]string) error {
	outcome, err := d.Dispatch(ctx, chatID, fields)
	if outcome == OutcomeAccepted {
		return nil
	}
	return err
}

// Dispatch makes one attempt and never retries. The returned error explains a failed outcome.
func (d *Dispatcher) Dispatch(ctx context.Context, chatID int64, fields map[string]string) (Outcome, error) {
	started := d.now()
	record := &domain.Submission{
		ID:         uuid.New(),
		ChatID:     chatID,
		Subject:    fields[state.FieldSubject],
		ClassLevel: fields[state.FieldClassLevel],
		Topic:      fields[state.FieldTopic],
		Week:       fields[state.FieldWeek],
		CreatedAt:  started.UTC(),
	}

	outcome, err := d.send(ctx, fields, record)
	record.Status = domain.SubmissionStatus(outcome)
	if err != nil {
		record.Error = err.Error()
	}

	metrics.RecordSubmission(string(outcome), d.now().Sub(started))
	d.log.Info("submission dispatched",
		slog.Int64("chat_id", chatID),
		slog.String("submission_id", record.ID.String()),
		slog.String("outcome", string(outcome)),
		slog.Int("http_status", record.HTTPStatus),
	)

	if d.ledger != nil {
		if lerr := d.ledger.Create(ctx, record); lerr != nil {
			d.log.Warn("failed to record submission", slog.String("submission_id", record.ID.String()), slog.Any("error", lerr))
		}
	}

	return outcome, err
}

func (d *Dispatcher) send(ctx context.Context, fields map[string]string, record *domain.Submission) (Outcome, error) {
	payload, err := BuildPayload(fields)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("build payload: %w", err)
	}

	status, err := d.generator.Generate(ctx, payload)
	record.HTTPStatus = status
	if err != nil {
		return OutcomeFailed, err
	}

	return OutcomeAccepted, nil
}
