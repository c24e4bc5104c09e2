package engine

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/itohio/adcmon/pkg/config"
)

// ADS1115Limits is the converter's data rate band.
var ADS1115Limits = Limits{MinRate: 8, MaxRate: 860}

const (
	regConversion = 0x00
	regConfig     = 0x01
	regLoThresh   = 0x02
	regHiThresh   = 0x03

	// edgeTimeout bounds each wait on the ready pin so Run notices cancellation.
	edgeTimeout = 100 * time.Millisecond
)

// ADS1115 runs the converter in continuous mode. With a ready pin the ALERT/RDY
// falling edge marks each finished conversion; without one the conversion
// register is polled at the data rate.
type ADS1115 struct {
	dev     *i2c.Dev
	bus     i2c.BusCloser
	ready   gpio.PinIn
	config  uint16
	rate    int
	bits    int
	log     *slog.Logger
	readBuf [2]byte
}

var _ Source = (*ADS1115)(nil)

// NewADS1115 opens the I2C bus and the optional ready pin.
func NewADS1115(cfg config.ADS1115Config, eng config.EngineConfig, log *slog.Logger) (*ADS1115, error) {
	word, err := ads1115ConfigWord(eng.Channel, eng.SampleRate, cfg.FullScale)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if log == nil {
		log = slog.Default()
	}

	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("host init: %w", err)
	}
	bus, err := i2creg.Open(cfg.Bus)
	if err != nil {
		return nil, fmt.Errorf("open i2c: %w", err)
	}

	a := &ADS1115{
		dev:    &i2c.Dev{Addr: uint16(cfg.Address), Bus: bus},
		bus:    bus,
		config: word,
		rate:   eng.SampleRate,
		bits:   eng.BitWidth,
		log:    log,
	}

	if cfg.ReadyPin != "" {
		pin := gpioreg.ByName(cfg.ReadyPin)
		if pin == nil {
			bus.Close()
			return nil, fmt.Errorf("ready pin %s not found", cfg.ReadyPin)
		}
		if err := pin.In(gpio.PullUp, gpio.FallingEdge); err != nil {
			bus.Close()
			return nil, fmt.Errorf("configure ready pin %s: %w", cfg.ReadyPin, err)
		}
		a.ready = pin
	}

	return a, nil
}

// Limits implements Source.
func (a *ADS1115) Limits() Limits {
	return ADS1115Limits
}

// Run implements Source.
func (a *ADS1115) Run(ctx context.Context, emit func(code uint16)) error {
	// Hi_thresh MSB set and Lo_thresh MSB clear turn ALERT/RDY into a
	// conversion-ready output.
	if err := a.write(regLoThresh, 0x0000); err != nil {
		return err
	}
	if err := a.write(regHiThresh, 0x8000); err != nil {
		return err
	}
	if err := a.write(regConfig, a.config); err != nil {
		return err
	}
	defer func() {
		// Back to single-shot mode: the converter powers down.
		if err := a.write(regConfig, a.config|1<<8); err != nil {
			a.log.Warn("failed to power down ads1115", "err", err)
		}
	}()

	var tick <-chan time.Time
	if a.ready == nil {
		ticker := time.NewTicker(time.Second / time.Duration(a.rate))
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		if a.ready != nil {
			if !a.ready.WaitForEdge(edgeTimeout) {
				if ctx.Err() != nil {
					return nil
				}
				continue
			}
		} else {
			select {
			case <-ctx.Done():
				return nil
			case <-tick:
			}
		}
		if ctx.Err() != nil {
			return nil
		}

		if err := a.dev.Tx([]byte{regConversion}, a.readBuf[:]); err != nil {
			return fmt.Errorf("read conversion: %w", err)
		}
		emit(ads1115Code(int16(binary.BigEndian.Uint16(a.readBuf[:])), a.bits))
	}
}

// Close implements Source.
func (a *ADS1115) Close() error {
	if a.bus != nil {
		return a.bus.Close()
	}
	return nil
}

func (a *ADS1115) write(reg byte, v uint16) error {
	if err := a.dev.Tx([]byte{reg, byte(v >> 8), byte(v)}, nil); err != nil {
		return fmt.Errorf("write register %#02x: %w", reg, err)
	}
	return nil
}

// ads1115ConfigWord builds the config register for continuous single-ended
// conversion on channel with the comparator asserting after every conversion.
func ads1115ConfigWord(channel, rate int, fullScale float64) (uint16, error) {
	if channel < 0 || channel > 3 {
		return 0, fmt.Errorf("invalid channel %d", channel)
	}

	var pga uint16
	switch fullScale {
	case 6.144:
		pga = 0x0
	case 4.096:
		pga = 0x1
	case 2.048:
		pga = 0x2
	case 1.024:
		pga = 0x3
	case 0.512:
		pga = 0x4
	case 0.256:
		pga = 0x5
	default:
		return 0, fmt.Errorf("unsupported full scale %v V", fullScale)
	}

	var dr uint16
	switch rate {
	case 8:
		dr = 0x0
	case 16:
		dr = 0x1
	case 32:
		dr = 0x2
	case 64:
		dr = 0x3
	case 128:
		dr = 0x4
	case 250:
		dr = 0x5
	case 475:
		dr = 0x6
	case 860:
		dr = 0x7
	default:
		return 0, fmt.Errorf("unsupported data rate %d SPS", rate)
	}

	var word uint16
	word |= uint16(0x4+channel) << 12 // AINx vs GND
	word |= pga << 9
	// MODE bit 8 clear: continuous conversion
	word |= dr << 5
	// COMP_MODE, COMP_POL, COMP_LAT clear; COMP_QUE 00: assert after one conversion
	return word, nil
}

// ads1115Code scales a signed 16-bit conversion to an unsigned code of bits width.
// Negative readings clamp to zero.
func ads1115Code(raw int16, bits int) uint16 {
	if raw < 0 {
		return 0
	}
	return uint16(raw) >> uint(15-bits)
}
