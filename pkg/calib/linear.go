package calib

// Linear maps the raw average straight to temperature with slope and offset.
type Linear struct {
	Slope     float32 // Degrees C per code
	Offset    float32 // Degrees C at code 0
	VRef      float32 // Reference voltage (V)
	FullScale float32 // 2^bits
}

// NewLinear creates a Linear calibrator.
func NewLinear(slope, offset, vref float64, bitWidth int) Linear {
	return Linear{
		Slope:     float32(slope),
		Offset:    float32(offset),
		VRef:      float32(vref),
		FullScale: FullScale(bitWidth),
	}
}

// Calibrate implements Calibrator.
func (l Linear) Calibrate(avg uint32) Reading {
	x := float32(avg)

	return Reading{
		Raw:         avg,
		Code:        avg,
		Temperature: x*l.Slope + l.Offset,
		Voltage:     x * l.VRef / l.FullScale,
	}
}
