package lifecycle

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/lessonnotes-bot/internal/health"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestShutdown_RunsStagesInOrder(t *testing.T) {
	s := NewShutdown(discardLogger())

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(name string) func(context.Context) error {
		return func(context.Context) error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		}
	}

	s.Register(StageFlush, "sentry", record("sentry"))
	s.Register(StageRelease, "redis", record("redis"))
	s.Register(StageStopIntake, "bot", record("bot"))
	s.Register(StageStopIntake, "nil", nil)

	require.NoError(t, s.Execute(context.Background()))
	assert.Equal(t, []string{"bot", "redis", "sentry"}, order)
}

func TestShutdown_JoinsErrors(t *testing.T) {
	s := NewShutdown(discardLogger())
	errRedis := errors.New("redis close failed")
	errDB := errors.New("db close failed")

	s.Register(StageRelease, "redis", func(context.Context) error { return errRedis })
	s.Register(StageRelease, "database", func(context.Context) error { return errDB })

	err := s.Execute(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, errRedis)
	assert.ErrorIs(t, err, errDB)
}

func TestShutdown_DeadlineAbandonsStuckStage(t *testing.T) {
	s := NewShutdown(discardLogger())
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	flushed := make(chan struct{}, 1)
	s.Register(StageStopIntake, "stuck", func(context.Context) error {
		<-release
		return nil
	})
	s.Register(StageFlush, "sentry", func(context.Context) error {
		flushed <- struct{}{}
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := s.Execute(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	select {
	case <-flushed:
	case <-time.After(time.Second):
		t.Fatal("flush stage did not run after the stuck stage")
	}
}

func TestProbes_Readiness(t *testing.T) {
	checker := health.NewChecker(discardLogger())
	healthy := true
	checker.AddCheck("redis", health.CheckFunc(func(context.Context) error {
		if healthy {
			return nil
		}
		return errors.New("connection refused")
	}))

	p := NewProbes(checker, discardLogger())
	require.NoError(t, p.Liveness(context.Background()))

	report, err := p.Readiness(context.Background())
	require.NoError(t, err)
	assert.True(t, report.Healthy)

	healthy = false
	report, err = p.Readiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis")
	assert.False(t, report.Healthy)

	p.Drain()
	_, err = p.Readiness(context.Background())
	assert.ErrorIs(t, err, ErrShuttingDown)
}

func TestStage_String(t *testing.T) {
	assert.Equal(t, "stop_intake", StageStopIntake.String())
	assert.Equal(t, "flush", StageFlush.String())
	assert.Equal(t, "stage_9", Stage(9).String())
}
