package domain

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus is the outcome of one hand-off to the generation pipeline.
type SubmissionStatus string

const (
	SubmissionAccepted SubmissionStatus = "accepted"
	SubmissionFailed   SubmissionStatus = "failed"
)

// Submission records a single dispatch attempt.
type Submission struct {
	ID         uuid.UUID
	ChatID     int64
	Subject    string
	ClassLevel string
	Topic      string
	Week       string
	Status     SubmissionStatus
	HTTPStatus int
	Error      string
	CreatedAt  time.Time
}
