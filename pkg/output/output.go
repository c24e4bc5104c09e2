// Package output defines the sinks calibrated readings are published to.
package output

import (
	"errors"
	"time"

	"github.com/itohio/adcmon/pkg/calib"
)

// Report is one emitted reading.
type Report struct {
	Time    time.Time
	Reading calib.Reading
	Samples int // Batch length the average was taken over
}

// Output publishes reports.
type Output interface {
	Publish(r Report) error
	Close() error
}

// Multi publishes to every output in order. A failing output does not stop the rest.
type Multi []Output

var _ Output = Multi(nil)

// Publish implements Output.
func (m Multi) Publish(r Report) error {
	var errs []error
	for _, o := range m {
		if err := o.Publish(r); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close implements Output.
func (m Multi) Close() error {
	var errs []error
	for _, o := range m {
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
