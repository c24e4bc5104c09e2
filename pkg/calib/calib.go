// Package calib converts averaged converter codes into physical units.
package calib

import (
	"fmt"
	"math"

	"github.com/chewxy/math32"

	"github.com/itohio/adcmon/pkg/config"
)

// Reading is the calibrated result of one batch average.
type Reading struct {
	Raw         uint32  // Batch average
	Code        uint32  // Corrected code, or Raw when there is no correction stage
	Corrected   bool    // Code went through a correction stage
	Temperature float32 // Degrees C
	Voltage     float32 // Volts
}

// Calibrator maps a raw batch average to a Reading.
// Implementations are pure: the same average always yields the same Reading.
type Calibrator interface {
	Calibrate(avg uint32) Reading
}

var (
	_ Calibrator = Cubic{}
	_ Calibrator = Linear{}
)

// Polynomial holds coefficients in ascending order: p[0] + p[1]*x + p[2]*x^2 ...
type Polynomial []float32

// NewPolynomial converts float64 coefficients.
func NewPolynomial(coeffs []float64) Polynomial {
	p := make(Polynomial, len(coeffs))
	for i, c := range coeffs {
		p[i] = float32(c)
	}
	return p
}

// Degree returns the polynomial degree, -1 for an empty polynomial.
func (p Polynomial) Degree() int {
	return len(p) - 1
}

// Eval evaluates the polynomial at x using Horner's scheme.
func (p Polynomial) Eval(x float32) float32 {
	var y float32
	for i := len(p) - 1; i >= 0; i-- {
		y = y*x + p[i]
	}
	return y
}

// FullScale returns 2^bits as float32.
func FullScale(bits int) float32 {
	return float32(uint32(1) << uint(bits))
}

// New builds the calibrator selected by cfg.Variant.
func New(cfg config.CalibrationConfig, bitWidth int) (Calibrator, error) {
	switch cfg.Variant {
	case config.VariantCubic:
		if len(cfg.Correction) != 4 || len(cfg.Temperature) != 3 {
			return nil, fmt.Errorf("cubic calibration needs 4 correction and 3 temperature coefficients, got %d and %d",
				len(cfg.Correction), len(cfg.Temperature))
		}
		return NewCubic(cfg.Correction, cfg.Temperature, cfg.ReferenceVoltage, bitWidth), nil
	case config.VariantLinear:
		return NewLinear(cfg.Slope, cfg.Offset, cfg.ReferenceVoltage, bitWidth), nil
	}
	return nil, fmt.Errorf("unknown calibration variant %q", cfg.Variant)
}

// toCode truncates a corrected value to an unsigned code. Negative and NaN values map to 0.
func toCode(v float32) uint32 {
	if math32.IsNaN(v) || v <= 0 {
		return 0
	}
	if math32.IsInf(v, 1) || v >= math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
