// Package metrics exposes the bot's Prometheus instruments.
package metrics

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

const collectInterval = 10 * time.Second

var (
	botUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of Telegram updates handled labeled by command and status",
		},
		[]string{"command", "status"},
	)
	updateDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "update_duration_seconds",
			Help:    "Duration of Telegram update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stepTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "step_transitions_total",
			Help: "Total number of conversation step transitions",
		},
		[]string{"from", "to"},
	)
	submissionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "submissions_total",
			Help: "Total number of lesson notes submissions by outcome",
		},
		[]string{"outcome"},
	)
	submissionDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "submission_duration_seconds",
			Help:    "Duration of calls to the generation endpoint in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Total number of errors split by type and severity",
		},
		[]string{"type", "severity"},
	)
	rateLimitChecksTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rate_limit_checks_total",
			Help: "Total number of rate limit checks by result",
		},
		[]string{"result"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_sessions",
			Help: "Current number of conversations in progress",
		},
	)
	sessionsByStep = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "sessions_by_step",
			Help: "Number of conversations waiting on each step",
		},
		[]string{"step"},
	)
)

func init() {
	state.RegisterTransitionRecorder(RecordStepTransition)
}

// RecordUpdate increments update counters and records duration.
func RecordUpdate(command, status string, duration time.Duration) {
	botUpdatesTotal.WithLabelValues(orUnknown(command), orUnknown(status)).Inc()
	updateDurationSeconds.WithLabelValues(orUnknown(command)).Observe(duration.Seconds())
}

// RecordStepTransition tracks conversation step changes.
func RecordStepTransition(from, to string) {
	stepTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

// RecordSubmission counts a dispatch attempt and how long it took.
func RecordSubmission(outcome string, duration time.Duration) {
	submissionsTotal.WithLabelValues(orUnknown(outcome)).Inc()
	submissionDurationSeconds.Observe(duration.Seconds())
}

// RecordError increments error counters with metadata.
func RecordError(errType, severity string) {
	errorsTotal.WithLabelValues(orUnknown(errType), orUnknown(severity)).Inc()
}

// RecordRateLimitCheck counts a limiter decision ("allowed", "limited" or "error").
func RecordRateLimitCheck(result string) {
	rateLimitChecksTotal.WithLabelValues(orUnknown(result)).Inc()
}

// SessionLister is the part of the session store the collector needs.
type SessionLister interface {
	List(ctx context.Context) ([]*state.Session, error)
}

// SessionCollector periodically counts stored sessions per step.
type SessionCollector struct {
	sessions SessionLister
	log      *slog.Logger
	interval time.Duration
}

// NewSessionCollector builds a collector polling sessions every 10 seconds.
func NewSessionCollector(sessions SessionLister, log *slog.Logger) *SessionCollector {
	if log == nil {
		log = slog.Default()
	}

	return &SessionCollector{sessions: sessions, log: log, interval: collectInterval}
}

// Run updates the session gauges until ctx is cancelled.
func (c *SessionCollector) Run(ctx context.Context) {
	if c == nil || c.sessions == nil {
		return
	}

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		if err := c.collect(ctx); err != nil && ctx.Err() == nil {
			c.log.Warn("failed to collect session metrics", slog.Any("error", err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (c *SessionCollector) collect(ctx context.Context) error {
	sessions, err := c.sessions.List(ctx)
	if err != nil {
		return err
	}

	activeSessions.Set(float64(len(sessions)))

	counts := make(map[string]int, len(sessions))
	for _, sess := range sessions {
		label := "unknown"
		if sess != nil && sess.Current.Valid() {
			label = string(sess.Current)
		}
		counts[label]++
	}

	sessionsByStep.Reset()
	for _, step := range state.Steps() {
		label := string(step)
		sessionsByStep.WithLabelValues(label).Set(float64(counts[label]))
		delete(counts, label)
	}
	for label, count := range counts {
		sessionsByStep.WithLabelValues(label).Set(float64(count))
	}

	return nil
}

func orUnknown(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}
