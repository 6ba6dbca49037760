package metrics

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Proton-105/lessonnotes-bot/internal/state"
)

type staticLister struct {
	sessions []*state.Session
	err      error
}

func (l staticLister) List(context.Context) ([]*state.Session, error) {
	return l.sessions, l.err
}

func TestSessionCollector_Collect(t *testing.T) {
	lister := staticLister{sessions: []*state.Session{
		{ChatID: 1, Current: state.StepSubject},
		{ChatID: 2, Current: state.StepSubject},
		{ChatID: 3, Current: state.StepConfirm},
		{ChatID: 4, Current: state.Step("LEGACY")},
	}}
	collector := NewSessionCollector(lister, slog.New(slog.NewTextHandler(io.Discard, nil)))

	require.NoError(t, collector.collect(context.Background()))

	assert.Equal(t, 4.0, testutil.ToFloat64(activeSessions))
	assert.Equal(t, 2.0, testutil.ToFloat64(sessionsByStep.WithLabelValues("SUBJECT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sessionsByStep.WithLabelValues("CONFIRM")))
	assert.Equal(t, 0.0, testutil.ToFloat64(sessionsByStep.WithLabelValues("TOPIC")))
	assert.Equal(t, 1.0, testutil.ToFloat64(sessionsByStep.WithLabelValues("unknown")))
}

func TestSessionCollector_ListError(t *testing.T) {
	collector := NewSessionCollector(staticLister{err: errors.New("redis down")}, nil)
	assert.Error(t, collector.collect(context.Background()))
}

func TestSessionCollector_RunStopsOnCancel(t *testing.T) {
	collector := NewSessionCollector(staticLister{}, nil)
	collector.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		collector.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
}

func TestRecorders(t *testing.T) {
	before := testutil.ToFloat64(stepTransitionsTotal.WithLabelValues("SUBJECT", "CLASS_LEVEL"))
	RecordStepTransition("SUBJECT", "CLASS_LEVEL")
	assert.Equal(t, before+1, testutil.ToFloat64(stepTransitionsTotal.WithLabelValues("SUBJECT", "CLASS_LEVEL")))

	before = testutil.ToFloat64(submissionsTotal.WithLabelValues("accepted"))
	RecordSubmission("accepted", 20*time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(submissionsTotal.WithLabelValues("accepted")))

	before = testutil.ToFloat64(botUpdatesTotal.WithLabelValues("unknown", "ok"))
	RecordUpdate("", "ok", time.Millisecond)
	assert.Equal(t, before+1, testutil.ToFloat64(botUpdatesTotal.WithLabelValues("unknown", "ok")))
}
