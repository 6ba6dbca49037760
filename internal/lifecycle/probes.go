package lifecycle

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync/atomic"

	"github.com/Proton-105/lessonnotes-bot/internal/health"
)

// ErrShuttingDown is reported by readiness once shutdown has begun.
var ErrShuttingDown = errors.New("shutting down")

// Probes answers the liveness and readiness endpoints.
type Probes struct {
	checker  *health.Checker
	log      *slog.Logger
	draining atomic.Bool
}

// NewProbes creates probes backed by checker. A nil checker makes readiness
// depend only on the shutdown flag.
func NewProbes(checker *health.Checker, log *slog.Logger) *Probes {
	if log == nil {
		log = slog.Default()
	}
	return &Probes{checker: checker, log: log}
}

// Liveness reports that the process is running.
func (p *Probes) Liveness(ctx context.Context) error {
	return nil
}

// Readiness runs every dependency check and returns the report alongside an
// error naming the failing components.
func (p *Probes) Readiness(ctx context.Context) (health.Report, error) {
	if p.draining.Load() {
		return health.Report{Healthy: false}, ErrShuttingDown
	}
	if p.checker == nil {
		return health.Report{Healthy: true}, nil
	}

	report := p.checker.Check(ctx)
	if report.Healthy {
		return report, nil
	}

	failed := make([]string, 0, len(report.Components))
	for _, c := range report.Components {
		if !c.Healthy {
			failed = append(failed, c.Name)
		}
	}
	p.log.Debug("readiness probe failed", slog.Any("components", failed))

	return report, errors.New("unhealthy: " + strings.Join(failed, ", "))
}

// Drain makes readiness fail from now on.
func (p *Probes) Drain() {
	p.draining.Store(true)
}
