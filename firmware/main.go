//go:build tinygo

//go:generate tinygo flash -target=xiao

package main

import (
	"machine"
	"strconv"
	"time"
)

var (
	adc    machine.ADC
	serial = machine.Serial

	// Output line, reused for every burst
	line  [SAMPLES_PER_LINE * 5]byte
	codes [SAMPLES_PER_LINE]uint16
	count int

	// Timing
	nextSample time.Time
)

func main() {
	PIN_ADC.Configure(machine.PinConfig{Mode: machine.PinInput})

	adc = machine.ADC{Pin: PIN_ADC}
	adc.Configure(machine.ADCConfig{
		Reference:  ADC_REFERENCE_MV,
		Resolution: ADC_RESOLUTION,
	})

	serial.Configure(machine.UARTConfig{
		BaudRate: UART_BAUD_RATE,
	})

	interval := time.Duration(SAMPLE_INTERVAL_US) * time.Microsecond
	nextSample = time.Now()

	for {
		now := time.Now()
		if now.Before(nextSample) {
			continue
		}
		nextSample = nextSample.Add(interval)

		codes[count] = quantize(adc.Get())
		count++

		if count == SAMPLES_PER_LINE {
			writeLine()
			count = 0
		}
	}
}

// quantize scales a 16-bit ADC reading down to SAMPLE_BITS.
func quantize(v uint16) uint16 {
	return v >> (16 - SAMPLE_BITS)
}

// writeLine sends the buffered codes as "c1,c2,...,cN\n".
func writeLine() {
	buf := line[:0]
	for i := 0; i < count; i++ {
		if i > 0 {
			buf = append(buf, ',')
		}
		buf = strconv.AppendUint(buf, uint64(codes[i]), 10)
	}
	buf = append(buf, '\n')
	serial.Write(buf)
}
