//go:build tinygo

package main

import "machine"

const (
	// Sampling configuration
	SAMPLE_INTERVAL_US = 100 // Conversion period in microseconds (10 kHz)
	SAMPLES_PER_LINE   = 50  // Codes per output line
	SAMPLE_BITS        = 10  // Code width sent to the host (must match engine.bit_width)

	// ADC configuration
	ADC_REFERENCE_MV = 3300 // Reference voltage in millivolts (3.3V)
	ADC_RESOLUTION   = 12   // ADC resolution in bits (12-bit = 0-4095)

	// ADC pins
	PIN_ADC = machine.A1

	// Serial configuration
	// Line format: "c1,c2,...,cN\n", at most 5 bytes per 10-bit code.
	// 10,000 codes/sec * 5 bytes = 50,000 bytes/sec = 500,000 baud at 8N1.
	// 921600 provides ~1.8x headroom.
	UART_BAUD_RATE = 921600
)
