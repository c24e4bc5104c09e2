// Package notify provides a single-slot wake-up between a sample producer and the
// task that drains it.
package notify

import (
	"context"
	"sync/atomic"
)

// Notifier holds at most one pending signal. Signals given while one is already
// pending collapse into it.
type Notifier struct {
	ch      chan struct{}
	waiting atomic.Int32
}

// New creates a Notifier with no pending signal.
func New() *Notifier {
	return &Notifier{
		ch: make(chan struct{}, 1),
	}
}

// Give posts a signal without blocking. It is the only operation the producer's
// completion callback performs and it never allocates.
//
// The result reports whether a consumer is blocked in Wait and should be scheduled
// now; the caller yields the processor when it is true.
func (n *Notifier) Give() (woken bool) {
	select {
	case n.ch <- struct{}{}:
		return n.waiting.Load() > 0
	default:
		return false
	}
}

// Wait blocks until a signal is pending and consumes it. It has no timeout of its own;
// with context.Background it blocks forever.
func (n *Notifier) Wait(ctx context.Context) error {
	n.waiting.Add(1)
	defer n.waiting.Add(-1)

	select {
	case <-n.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Pending reports whether an unconsumed signal exists.
func (n *Notifier) Pending() bool {
	return len(n.ch) > 0
}
