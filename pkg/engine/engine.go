// Package engine implements a continuous sampling engine: a conversion source fills
// fixed-size frames, finished frames are stored in a bounded pool, and a completion
// callback tells the consumer that data is ready.
package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/itohio/adcmon/pkg/config"
	"github.com/itohio/adcmon/pkg/sample"
)

var (
	// ErrTimeout is returned by Read when the pool holds no data.
	ErrTimeout = errors.New("engine: no conversion data available")
	// ErrInvalidState is returned for calls that are illegal in the current lifecycle state.
	ErrInvalidState = errors.New("engine: invalid state")
	// ErrInvalidConfig is returned by New for configurations the engine cannot run.
	ErrInvalidConfig = errors.New("engine: invalid configuration")
	// ErrShortBuffer is returned by Read when the buffer cannot hold one result.
	ErrShortBuffer = errors.New("engine: read buffer shorter than one result")
)

// Engine is the contract the drain loop uses.
type Engine interface {
	Start() error
	Stop() error
	// Read copies whole conversion results into buf without blocking.
	// It returns ErrTimeout when nothing is buffered.
	Read(buf []byte) (int, error)
	Deinit() error
}

var _ Engine = (*Continuous)(nil)

// State is the engine lifecycle state.
type State uint8

const (
	StateUninitialized State = iota
	StateConfigured
	StateRunning
	StateStopped
	StateDeinitialized
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateConfigured:
		return "configured"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	case StateDeinitialized:
		return "deinitialized"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// DoneFunc is called from the producer goroutine each time a frame lands in the pool.
// It must only signal the consumer: no I/O, no logging, no allocation.
// It returns true when a waiting consumer was woken and the producer should yield.
type DoneFunc func() bool

// Callbacks holds the engine event callbacks. There is deliberately no overflow
// callback: overflow is counted, never reported.
type Callbacks struct {
	OnConvDone DoneFunc
}

// Limits is the sample rate band a source supports.
type Limits struct {
	MinRate int
	MaxRate int
}

// Contains reports whether rate lies within the band.
func (l Limits) Contains(rate int) bool {
	return rate >= l.MinRate && rate <= l.MaxRate
}

// Source produces conversion codes. Run emits codes until ctx is done and then
// returns nil; any other return is a source failure.
type Source interface {
	Limits() Limits
	Run(ctx context.Context, emit func(code uint16)) error
	Close() error
}

// Config is the engine handle configuration.
type Config struct {
	SampleRate     int
	Unit           uint8 // 1-based ADC unit
	Channel        uint8
	BitWidth       int
	Format         sample.Format
	BufferSize     int // Pool size in bytes
	SamplesPerRead int // Results per frame
	FlushPool      bool
}

// ConfigFrom converts the application engine configuration.
func ConfigFrom(e config.EngineConfig) (Config, error) {
	format, err := sample.ParseFormat(e.Format)
	if err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return Config{
		SampleRate:     e.SampleRate,
		Unit:           uint8(e.Unit),
		Channel:        uint8(e.Channel),
		BitWidth:       e.BitWidth,
		Format:         format,
		BufferSize:     e.BufferSize,
		SamplesPerRead: e.SamplesPerRead,
		FlushPool:      e.Overflow != config.OverflowDrop,
	}, nil
}

// FrameSize returns the frame size in bytes.
func (c Config) FrameSize() int {
	return c.SamplesPerRead * c.Format.Size()
}

// MaxCode returns the largest code at the configured bit width.
func (c Config) MaxCode() uint16 {
	return uint16(1)<<uint(c.BitWidth) - 1
}

func (c Config) validate(limits Limits) error {
	if !limits.Contains(c.SampleRate) {
		return fmt.Errorf("%w: sample rate %d Hz outside %d..%d Hz", ErrInvalidConfig, c.SampleRate, limits.MinRate, limits.MaxRate)
	}
	if c.Format.Size() == 0 {
		return fmt.Errorf("%w: unknown format %v", ErrInvalidConfig, c.Format)
	}
	if c.BitWidth < 9 || c.BitWidth > 12 {
		return fmt.Errorf("%w: bit width %d", ErrInvalidConfig, c.BitWidth)
	}
	if c.SamplesPerRead <= 0 {
		return fmt.Errorf("%w: samples per read %d", ErrInvalidConfig, c.SamplesPerRead)
	}
	if c.BufferSize < c.FrameSize() {
		return fmt.Errorf("%w: buffer %d bytes smaller than frame %d bytes", ErrInvalidConfig, c.BufferSize, c.FrameSize())
	}
	return nil
}
