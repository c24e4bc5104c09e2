package engine

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/itohio/adcmon/pkg/sample"
)

// Continuous is the engine handle. Exactly one goroutine (the drain loop) owns it;
// the source goroutine only touches the pool and the completion callback.
type Continuous struct {
	cfg Config
	src Source
	log *slog.Logger

	mu    sync.Mutex
	state State
	pool  *pool
	err   error // Source failure, reported by Read once the pool is drained
	cbs   Callbacks

	// Producer side, owned by the source goroutine while running.
	frame  []byte
	fill   int
	result sample.Sample

	overflows atomic.Uint64
	cancel    context.CancelFunc
	done      chan struct{}
}

// New validates cfg against the source limits and allocates the engine.
// The returned engine is in the configured state.
func New(cfg Config, src Source, log *slog.Logger) (*Continuous, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: no conversion source", ErrInvalidConfig)
	}
	if err := cfg.validate(src.Limits()); err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}

	var unitTag uint8
	if cfg.Unit > 0 {
		unitTag = cfg.Unit - 1
	}

	return &Continuous{
		cfg:    cfg,
		src:    src,
		log:    log,
		state:  StateConfigured,
		pool:   newPool(cfg.BufferSize),
		frame:  make([]byte, cfg.FrameSize()),
		result: sample.Sample{Channel: cfg.Channel, Unit: unitTag},
	}, nil
}

// Config returns the engine configuration.
func (c *Continuous) Config() Config {
	return c.cfg
}

// State returns the lifecycle state.
func (c *Continuous) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Overflows returns the number of frames that did not fit into the pool.
func (c *Continuous) Overflows() uint64 {
	return c.overflows.Load()
}

// RegisterCallbacks installs the event callbacks. Only legal before the first Start.
func (c *Continuous) RegisterCallbacks(cbs Callbacks) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConfigured {
		return fmt.Errorf("register callbacks in state %v: %w", c.state, ErrInvalidState)
	}
	c.cbs = cbs
	return nil
}

// Start starts conversions.
func (c *Continuous) Start() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConfigured && c.state != StateStopped {
		return fmt.Errorf("start in state %v: %w", c.state, ErrInvalidState)
	}

	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})
	c.fill = 0
	c.err = nil
	c.state = StateRunning

	go c.run(ctx, c.done)

	c.log.Debug("engine started", "rate", c.cfg.SampleRate, "frame", len(c.frame), "pool", c.cfg.BufferSize)
	return nil
}

// Stop stops conversions. Frames already in the pool stay readable.
func (c *Continuous) Stop() error {
	c.mu.Lock()
	if c.state != StateRunning {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("stop in state %v: %w", state, ErrInvalidState)
	}
	c.state = StateStopped
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	cancel()
	<-done

	c.log.Debug("engine stopped", "overflows", c.Overflows())
	return nil
}

// Deinit releases the source. The engine must not be running.
func (c *Continuous) Deinit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateConfigured && c.state != StateStopped {
		return fmt.Errorf("deinit in state %v: %w", c.state, ErrInvalidState)
	}
	c.state = StateDeinitialized
	c.pool.Reset()

	if err := c.src.Close(); err != nil {
		return fmt.Errorf("close source: %w", err)
	}
	return nil
}

// Read implements Engine. It never blocks.
func (c *Continuous) Read(buf []byte) (int, error) {
	size := c.cfg.Format.Size()
	n := len(buf) - len(buf)%size
	if n == 0 {
		return 0, ErrShortBuffer
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateRunning && c.state != StateStopped {
		return 0, fmt.Errorf("read in state %v: %w", c.state, ErrInvalidState)
	}
	if c.pool.Len() == 0 {
		if c.err != nil {
			return 0, c.err
		}
		return 0, ErrTimeout
	}

	return c.pool.Read(buf[:n]), nil
}

func (c *Continuous) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	err := c.src.Run(ctx, c.convert)
	if err == nil || ctx.Err() != nil {
		return
	}

	c.mu.Lock()
	c.err = fmt.Errorf("conversion source: %w", err)
	cb := c.cbs.OnConvDone
	c.mu.Unlock()

	// Wake the consumer so it observes the failure.
	if cb != nil {
		cb()
	}
}

// convert stores one conversion result. It is the source's emit function and
// runs on the source goroutine.
func (c *Continuous) convert(code uint16) {
	if limit := c.cfg.MaxCode(); code > limit {
		code = limit
	}

	c.result.Code = code
	c.cfg.Format.Put(c.frame[c.fill:], c.result)
	c.fill += c.cfg.Format.Size()
	if c.fill < len(c.frame) {
		return
	}
	c.fill = 0

	c.mu.Lock()
	if c.pool.Free() < len(c.frame) {
		c.overflows.Add(1)
		if !c.cfg.FlushPool {
			c.mu.Unlock()
			return
		}
		c.pool.Reset()
	}
	c.pool.Write(c.frame)
	cb := c.cbs.OnConvDone
	c.mu.Unlock()

	if cb != nil && cb() {
		runtime.Gosched()
	}
}
