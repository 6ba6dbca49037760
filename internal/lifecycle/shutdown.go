// Package lifecycle coordinates readiness and ordered shutdown of the process.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Stage orders shutdown work. Hooks of one stage run concurrently, stages run in order.
type Stage int

const (
	// StageStopIntake stops the bot poller and the ops server.
	StageStopIntake Stage = iota
	// StageRelease closes Redis and PostgreSQL connections.
	StageRelease
	// StageFlush drains telemetry such as Sentry.
	StageFlush
)

func (s Stage) String() string {
	switch s {
	case StageStopIntake:
		return "stop_intake"
	case StageRelease:
		return "release"
	case StageFlush:
		return "flush"
	default:
		return fmt.Sprintf("stage_%d", int(s))
	}
}

// Hook describes a named shutdown hook.
type Hook struct {
	Name  string
	Stage Stage
	Fn    func(ctx context.Context) error
}

// Shutdown runs registered hooks stage by stage under one deadline.
type Shutdown struct {
	mu    sync.Mutex
	hooks []Hook
	log   *slog.Logger
}

// NewShutdown constructs a new Shutdown coordinator.
func NewShutdown(log *slog.Logger) *Shutdown {
	if log == nil {
		log = slog.Default()
	}

	return &Shutdown{log: log}
}

// Register adds a named hook to stage.
func (s *Shutdown) Register(stage Stage, name string, fn func(context.Context) error) {
	if fn == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.hooks = append(s.hooks, Hook{Name: name, Stage: stage, Fn: fn})
}

// Execute runs every stage and joins the hook errors. A stage that is still
// running when ctx expires is abandoned and later stages still run.
func (s *Shutdown) Execute(ctx context.Context) error {
	s.mu.Lock()
	hooks := append([]Hook(nil), s.hooks...)
	s.mu.Unlock()

	start := time.Now()
	s.log.Info("shutdown sequence started", slog.Int("hook_count", len(hooks)))

	byStage := make(map[Stage][]Hook)
	maxStage := Stage(-1)
	for _, h := range hooks {
		byStage[h.Stage] = append(byStage[h.Stage], h)
		if h.Stage > maxStage {
			maxStage = h.Stage
		}
	}

	var errs []error
	for stage := Stage(0); stage <= maxStage; stage++ {
		if stageHooks := byStage[stage]; len(stageHooks) > 0 {
			errs = append(errs, s.runStage(ctx, stage, stageHooks)...)
		}
	}

	s.log.Info("shutdown sequence finished", slog.Duration("elapsed", time.Since(start)))

	return errors.Join(errs...)
}

func (s *Shutdown) runStage(ctx context.Context, stage Stage, hooks []Hook) []error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, h := range hooks {
		wg.Add(1)
		go func(h Hook) {
			defer wg.Done()

			s.log.Info("running shutdown hook", slog.String("stage", stage.String()), slog.String("hook", h.Name))
			if err := h.Fn(ctx); err != nil {
				s.log.Error("shutdown hook failed", slog.String("hook", h.Name), slog.Any("error", err))
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", h.Name, err))
				mu.Unlock()
			}
		}(h)
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		s.log.Warn("shutdown stage timed out", slog.String("stage", stage.String()))
		mu.Lock()
		errs = append(errs, fmt.Errorf("stage %s: %w", stage, ctx.Err()))
		mu.Unlock()
	}

	mu.Lock()
	defer mu.Unlock()
	return append([]error(nil), errs...)
}
