package engine

import (
	"context"
	"math/rand"
	"time"

	"github.com/chewxy/math32"

	"github.com/itohio/adcmon/pkg/config"
)

// SimLimits is the band of the ESP32 digital controller the simulator imitates.
var SimLimits = Limits{MinRate: config.SampleFreqLow, MaxRate: config.SampleFreqHigh}

// simTick is how often the simulator catches up with the sample clock.
const simTick = 5 * time.Millisecond

// Sim simulates a thermistor divider on an attenuated ADC input: a mean level,
// a slow sine drift and uniform noise, quantized at the configured bit width.
type Sim struct {
	cfg       config.SimConfig
	rate      int
	fullScale float32 // Input voltage that maps to the top code
	maxCode   float32

	rng *rand.Rand
	n   uint64 // Samples produced
}

var _ Source = (*Sim)(nil)

// NewSim creates a simulated source.
func NewSim(cfg config.SimConfig, eng config.EngineConfig) *Sim {
	if cfg.Period <= 0 {
		cfg.Period = time.Minute
	}

	return &Sim{
		cfg:       cfg,
		rate:      eng.SampleRate,
		fullScale: AttenuationFullScale(eng.AttenuationDB),
		maxCode:   float32(uint32(1)<<uint(eng.BitWidth) - 1),
		rng:       rand.New(rand.NewSource(cfg.Seed)),
	}
}

// AttenuationFullScale returns the nominal full-scale input voltage for an
// attenuation setting, referenced to the 1.1 V internal reference.
func AttenuationFullScale(db float64) float32 {
	return 1.1 * math32.Pow(10, float32(db)/20)
}

// Limits implements Source.
func (s *Sim) Limits() Limits {
	return SimLimits
}

// Run implements Source. Samples are produced on a sample clock derived from the
// configured rate, in bursts every simTick.
func (s *Sim) Run(ctx context.Context, emit func(code uint16)) error {
	ticker := time.NewTicker(simTick)
	defer ticker.Stop()

	start := time.Now()
	base := s.n

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			due := base + uint64(now.Sub(start).Seconds()*float64(s.rate))
			for s.n < due {
				emit(s.next())
				if ctx.Err() != nil {
					return nil
				}
			}
		}
	}
}

// Close implements Source.
func (s *Sim) Close() error {
	return nil
}

// next returns the code of the next sample on the simulated sample clock.
func (s *Sim) next() uint16 {
	t := float32(float64(s.n) / float64(s.rate))
	s.n++

	v := float32(s.cfg.Level)
	if s.cfg.Swing != 0 {
		v += float32(s.cfg.Swing) * math32.Sin(2*math32.Pi*t/float32(s.cfg.Period.Seconds()))
	}
	if s.cfg.Noise != 0 {
		v += float32(s.cfg.Noise) * (2*s.rng.Float32() - 1)
	}

	code := math32.Floor(v/s.fullScale*s.maxCode + 0.5)
	if code < 0 {
		return 0
	}
	if code > s.maxCode {
		return uint16(s.maxCode)
	}
	return uint16(code)
}
