// Package meter drains the sampling engine: every wake it reads batches until the
// engine has nothing buffered, averages each batch, calibrates the average and
// publishes the reading at a fixed cadence.
package meter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/itohio/adcmon/pkg/calib"
	"github.com/itohio/adcmon/pkg/engine"
	"github.com/itohio/adcmon/pkg/output"
	"github.com/itohio/adcmon/pkg/sample"
)

// Reader is the part of the engine the drain loop reads from.
type Reader interface {
	// Read must not block and returns engine.ErrTimeout when nothing is buffered.
	Read(buf []byte) (int, error)
}

// Waiter blocks until the engine signals that data is ready.
type Waiter interface {
	Wait(ctx context.Context) error
}

// State is the drain loop state.
type State uint32

const (
	StateWaiting State = iota
	StateDraining
)

func (s State) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateDraining:
		return "draining"
	}
	return fmt.Sprintf("State(%d)", uint32(s))
}

// FatalError is an unrecoverable drain loop failure. Op names the failed call.
type FatalError struct {
	Op  string
	Err error
}

func (e *FatalError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Meter is the drain loop. Run and Drain must be called from one goroutine.
type Meter struct {
	eng    Reader
	sig    Waiter
	cal    calib.Calibrator
	pacer  Pacer
	format sample.Format
	log    *slog.Logger

	// Batch storage, allocated once.
	buf   []byte
	batch []sample.Sample

	state atomic.Uint32
	now   func() time.Time

	callbacks []func(output.Report)
	cbMu      sync.RWMutex
}

// New creates a drain loop reading cfg.SamplesPerRead results per batch.
func New(eng Reader, cfg engine.Config, sig Waiter, cal calib.Calibrator, pacer Pacer, log *slog.Logger) *Meter {
	if pacer == nil {
		pacer = NewInterval(0)
	}
	if log == nil {
		log = slog.Default()
	}

	return &Meter{
		eng:    eng,
		sig:    sig,
		cal:    cal,
		pacer:  pacer,
		format: cfg.Format,
		log:    log,
		buf:    make([]byte, cfg.FrameSize()),
		batch:  make([]sample.Sample, 0, cfg.SamplesPerRead),
		now:    time.Now,
	}
}

// OnUpdate registers a callback receiving every emitted reading.
// Callbacks run on the drain loop goroutine and delay the next read.
func (m *Meter) OnUpdate(fn func(r output.Report)) {
	m.cbMu.Lock()
	defer m.cbMu.Unlock()
	m.callbacks = append(m.callbacks, fn)
}

// State returns the current drain loop state.
func (m *Meter) State() State {
	return State(m.state.Load())
}

// Run waits for data and drains it until ctx is done or a fatal error occurs.
// A cancelled ctx is a controlled exit and returns nil.
func (m *Meter) Run(ctx context.Context) error {
	defer m.state.Store(uint32(StateWaiting))

	for {
		m.state.Store(uint32(StateWaiting))
		if err := m.sig.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return &FatalError{Op: "wait", Err: err}
		}

		m.state.Store(uint32(StateDraining))
		batches, err := m.Drain(ctx)
		if err != nil {
			var fatal *FatalError
			if !errors.As(err, &fatal) && ctx.Err() != nil {
				return nil
			}
			return err
		}
		if batches == 0 && m.log.Enabled(ctx, slog.LevelDebug) {
			m.log.Debug("spurious wake")
		}
	}
}

// Drain reads batches until the engine reports that nothing is buffered and
// returns the number of readings emitted. Empty batches are skipped.
func (m *Meter) Drain(ctx context.Context) (int, error) {
	var batches int
	for {
		n, err := m.eng.Read(m.buf)
		if errors.Is(err, engine.ErrTimeout) {
			return batches, nil
		}
		if err != nil {
			return batches, &FatalError{Op: "engine read", Err: err}
		}

		batch, err := sample.Decode(m.batch, m.buf[:n], m.format)
		if err != nil {
			return batches, &FatalError{Op: "decode", Err: err}
		}

		avg, ok := sample.Average(batch)
		if !ok {
			continue
		}
		batches++

		m.emit(output.Report{
			Time:    m.now(),
			Reading: m.cal.Calibrate(avg),
			Samples: len(batch),
		})

		if err := m.pacer.Pace(ctx); err != nil {
			return batches, err
		}
	}
}

func (m *Meter) emit(r output.Report) {
	m.cbMu.RLock()
	defer m.cbMu.RUnlock()
	for _, cb := range m.callbacks {
		cb(r)
	}
}
