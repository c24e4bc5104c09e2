package calib

import (
	"math"
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/adcmon/pkg/config"
)

func defaultCubic() Cubic {
	cfg := config.Default().Calibration
	return NewCubic(cfg.Correction, cfg.Temperature, cfg.ReferenceVoltage, 10)
}

func defaultLinear() Linear {
	return NewLinear(-0.11373, 121.657, 3.3, 10)
}

func TestPolynomial_Eval(t *testing.T) {
	tests := []struct {
		name string
		p    Polynomial
		x    float32
		want float32
	}{
		{name: "empty", p: nil, x: 5, want: 0},
		{name: "constant", p: Polynomial{3}, x: 5, want: 3},
		{name: "linear", p: Polynomial{1, 2}, x: 5, want: 11},
		{name: "quadratic", p: Polynomial{1, 0, 1}, x: 3, want: 10},
		{name: "cubic", p: Polynomial{0, 0, 0, 2}, x: 2, want: 16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.Eval(tt.x))
		})
	}

	assert.Equal(t, 3, Polynomial{1, 2, 3, 4}.Degree())
	assert.Equal(t, -1, Polynomial(nil).Degree())
}

func TestFullScale(t *testing.T) {
	assert.Equal(t, float32(1024), FullScale(10))
	assert.Equal(t, float32(4096), FullScale(12))
}

func TestLinear_Voltage(t *testing.T) {
	// 512 * 3.3 / 1024 = 1.65 V regardless of temperature coefficients.
	for _, l := range []Linear{defaultLinear(), NewLinear(1, 0, 3.3, 10), NewLinear(0, 0, 3.3, 10)} {
		r := l.Calibrate(512)
		assert.InDelta(t, 1.65, r.Voltage, 1e-6)
	}
}

func TestLinear_Temperature(t *testing.T) {
	r := defaultLinear().Calibrate(500)
	// 500 * -0.11373 + 121.657 = 64.792
	assert.InDelta(t, 64.792, r.Temperature, 1e-3)
	assert.Equal(t, uint32(500), r.Raw)
	assert.Equal(t, uint32(500), r.Code)
	assert.False(t, r.Corrected)
}

func TestCubic_KnownPoints(t *testing.T) {
	c := defaultCubic()

	tests := []struct {
		avg         uint32
		code        uint32
		temperature float32
		voltage     float32
	}{
		{avg: 0, code: 40, temperature: 123.817, voltage: 0.13039},
		{avg: 512, code: 559, temperature: 56.386, voltage: 1.80326},
		{avg: 1000, code: 1003, temperature: 13.362, voltage: 3.23528},
	}

	for _, tt := range tests {
		r := c.Calibrate(tt.avg)
		assert.Equal(t, tt.avg, r.Raw)
		assert.Equal(t, tt.code, r.Code, "avg=%d", tt.avg)
		assert.True(t, r.Corrected)
		assert.InDelta(t, tt.temperature, r.Temperature, 0.01, "avg=%d", tt.avg)
		assert.InDelta(t, tt.voltage, r.Voltage, 1e-3, "avg=%d", tt.avg)
	}
}

func TestCalibrate_Deterministic(t *testing.T) {
	for _, c := range []Calibrator{defaultCubic(), defaultLinear()} {
		for avg := uint32(0); avg < 1024; avg += 7 {
			a := c.Calibrate(avg)
			b := c.Calibrate(avg)
			assert.Equal(t, math32.Float32bits(a.Temperature), math32.Float32bits(b.Temperature))
			assert.Equal(t, math32.Float32bits(a.Voltage), math32.Float32bits(b.Voltage))
			assert.Equal(t, a, b)
		}
	}
}

func TestCalibrate_VoltageMonotonic(t *testing.T) {
	// The cubic correction is monotonic over the 10-bit code range.
	for _, c := range []Calibrator{defaultCubic(), defaultLinear()} {
		prev := c.Calibrate(0).Voltage
		for avg := uint32(1); avg < 1024; avg++ {
			v := c.Calibrate(avg).Voltage
			require.GreaterOrEqual(t, v, prev, "%T avg=%d", c, avg)
			prev = v
		}
	}
}

func TestCalibrate_Finite(t *testing.T) {
	for _, c := range []Calibrator{defaultCubic(), NewLinear(-0.11373, 121.657, 3.3, 12)} {
		for avg := uint32(0); avg < 4096; avg++ {
			r := c.Calibrate(avg)
			assert.False(t, math32.IsNaN(r.Temperature) || math32.IsInf(r.Temperature, 0))
			assert.False(t, math32.IsNaN(r.Voltage) || math32.IsInf(r.Voltage, 0))
		}
	}
}

func TestToCode(t *testing.T) {
	assert.Equal(t, uint32(0), toCode(-3.5))
	assert.Equal(t, uint32(0), toCode(math32.NaN()))
	assert.Equal(t, uint32(12), toCode(12.9))
	assert.Equal(t, uint32(math.MaxUint32), toCode(math32.Inf(1)))
}

func TestNew(t *testing.T) {
	cfg := config.Default().Calibration

	c, err := New(cfg, 10)
	require.NoError(t, err)
	assert.IsType(t, Cubic{}, c)

	cfg.Variant = config.VariantLinear
	c, err = New(cfg, 10)
	require.NoError(t, err)
	assert.IsType(t, Linear{}, c)
	assert.InDelta(t, 64.792, c.Calibrate(500).Temperature, 1e-3)

	cfg.Variant = "spline"
	_, err = New(cfg, 10)
	assert.Error(t, err)

	cfg.Variant = config.VariantCubic
	cfg.Correction = []float64{1, 2}
	_, err = New(cfg, 10)
	assert.Error(t, err)
}
