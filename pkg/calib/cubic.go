package calib

// Cubic corrects the converter non-linearity with a cubic polynomial and then maps
// the corrected code to temperature with a quadratic fit. Voltage follows the
// corrected code.
type Cubic struct {
	Correction  Polynomial // Degree 3, raw average -> corrected code
	Temperature Polynomial // Degree 2, corrected code -> degrees C
	VRef        float32    // Reference voltage (V)
	FullScale   float32    // 2^bits
}

// NewCubic creates a Cubic calibrator.
func NewCubic(correction, temperature []float64, vref float64, bitWidth int) Cubic {
	return Cubic{
		Correction:  NewPolynomial(correction),
		Temperature: NewPolynomial(temperature),
		VRef:        float32(vref),
		FullScale:   FullScale(bitWidth),
	}
}

// Calibrate implements Calibrator.
func (c Cubic) Calibrate(avg uint32) Reading {
	corrected := c.Correction.Eval(float32(avg))

	return Reading{
		Raw:         avg,
		Code:        toCode(corrected),
		Corrected:   true,
		Temperature: c.Temperature.Eval(corrected),
		Voltage:     corrected * c.VRef / c.FullScale,
	}
}
