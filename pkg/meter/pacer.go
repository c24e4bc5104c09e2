package meter

import (
	"context"
	"time"
)

// Pacer throttles emission. Pace is called once after every emitted reading.
type Pacer interface {
	Pace(ctx context.Context) error
}

// PaceFunc adapts a function to Pacer.
type PaceFunc func(ctx context.Context) error

// Pace implements Pacer.
func (f PaceFunc) Pace(ctx context.Context) error {
	return f(ctx)
}

// Interval sleeps a fixed duration. It is not safe for concurrent use.
type Interval struct {
	d     time.Duration
	timer *time.Timer
}

var _ Pacer = (*Interval)(nil)

// NewInterval creates a pacer sleeping d. A non-positive d does not pace.
func NewInterval(d time.Duration) *Interval {
	return &Interval{d: d}
}

// Duration returns the pacing interval.
func (p *Interval) Duration() time.Duration {
	return p.d
}

// Pace sleeps the interval or until ctx is done, whichever comes first.
func (p *Interval) Pace(ctx context.Context) error {
	if p.d <= 0 {
		return ctx.Err()
	}

	if p.timer == nil {
		p.timer = time.NewTimer(p.d)
	} else {
		p.timer.Reset(p.d)
	}

	select {
	case <-ctx.Done():
		p.timer.Stop()
		return ctx.Err()
	case <-p.timer.C:
		return nil
	}
}
