package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Proton-105/lessonnotes-bot/internal/domain"
)

// SubmissionRepository is the ledger of dispatch attempts.
type SubmissionRepository interface {
	Create(ctx context.Context, s *domain.Submission) error
	LatestByChat(ctx context.Context, chatID int64, limit int) ([]*domain.Submission, error)
}

type submissionRepository struct {
	db  *sql.DB
	log *slog.Logger
}

// NewSubmissionRepository creates a PostgreSQL-backed submission ledger.
func NewSubmissionRepository(db *sql.DB, log *slog.Logger) SubmissionRepository {
	if log == nil {
		log = slog.Default()
	}

	return &submissionRepository{db: db, log: log}
}

func (r *submissionRepository) Create(ctx context.Context, s *domain.Submission) error {
	const query = `
		INSERT INTO submissions (id, chat_id, subject, class_level, topic, week, status, http_status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	if _, err := r.db.ExecContext(
		ctx,
		query,
		s.ID,
		s.ChatID,
		s.Subject,
		s.ClassLevel,
		s.Topic,
		s.Week,
		string(s.Status),
		s.HTTPStatus,
		s.Error,
		s.CreatedAt,
	); err != nil {
		r.log.Error("failed to record submission", slog.Int64("chat_id", s.ChatID), slog.Any("error", err))
		return fmt.Errorf("insert submission: %w", err)
	}

	return nil
}

// LatestByChat returns up to limit submissions for chatID, newest first.
func (r *submissionRepository) LatestByChat(ctx context.Context, chatID int64, limit int) ([]*domain.Submission, error) {
	const query = `
		SELECT id, chat_id, subject, class_level, topic, week, status, http_status, error, created_at
		FROM submissions
		WHERE chat_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, chatID, limit)
	if err != nil {
		return nil, fmt.Errorf("select submissions: %w", err)
	}
	defer rows.Close()

	var result []*domain.Submission
	for rows.Next() {
		var (
			s      domain.Submission
			status string
		)
		if err := rows.Scan(&s.ID, &s.ChatID, &s.Subject, &s.ClassLevel, &s.Topic, &s.Week, &status, &s.HTTPStatus, &s.Error, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		s.Status = domain.SubmissionStatus(status)
		result = append(result, &s)
	}

	return result, rows.Err()
}
