package errors

import (
	"context"
	"errors"
	"time"
)

// RetryPolicy describes exponential backoff between attempts.
type RetryPolicy struct {
	// Retries is the number of attempts after the first one.
	Retries    int
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
}

// DefaultRetryPolicy waits 100ms, 200ms and 400ms between four attempts.
var DefaultRetryPolicy = RetryPolicy{
	Retries:    3,
	Initial:    100 * time.Millisecond,
	Max:        5 * time.Second,
	Multiplier: 2,
}

// WithRetry runs fn under DefaultRetryPolicy. Used for startup connections;
// conversation handling never retries.
func WithRetry(ctx context.Context, fn func() error) error {
	return DefaultRetryPolicy.Do(ctx, fn)
}

// Do calls fn until it succeeds, returns an error that is not a retryable
// AppError, or the retries are spent.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}

	err := fn()
	for retry := 1; err != nil && retry <= p.Retries && IsRetryable(err); retry++ {
		timer := time.NewTimer(p.delay(retry))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		err = fn()
	}

	return err
}

// delay returns the wait before the given retry, counted from 1.
func (p RetryPolicy) delay(retry int) time.Duration {
	d := p.Initial
	for i := 1; i < retry; i++ {
		d = time.Duration(float64(d) * p.Multiplier)
		if p.Max > 0 && d >= p.Max {
			return p.Max
		}
	}
	return d
}

// IsRetryable reports whether err carries an AppError marked Retryable.
func IsRetryable(err error) bool {
	var appErr *AppError
	if errors.As(err, &appErr) && appErr != nil {
		return appErr.Retryable
	}

	return false
}
