package resilience

import (
	"context"
	"errors"
	"time"
)

// Timeout bounds a single call.
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout wrapper. Non-positive durations default to 10s.
func NewTimeout(d time.Duration) *Timeout {
	if d <= 0 {
		d = 10 * time.Second
	}
	return &Timeout{d: d}
}

// Duration returns the configured time budget.
func (t *Timeout) Duration() time.Duration {
	return t.d
}

// Execute runs op with a derived deadline. A deadline hit by this wrapper is
// reported as ErrTimeout; cancellation of the parent context is returned
// as-is.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	callCtx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()

	err := op(callCtx)
	if err != nil && ctx.Err() == nil && errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return errors.Join(ErrTimeout, err)
	}
	return err
}
