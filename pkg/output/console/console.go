// Package console logs every reading through the application logger.
package console

import (
	"log/slog"

	"github.com/itohio/adcmon/pkg/output"
)

// Output writes one structured log line per reading.
type Output struct {
	log *slog.Logger
}

var _ output.Output = (*Output)(nil)

// New creates a console output. A nil logger uses slog.Default.
func New(log *slog.Logger) *Output {
	if log == nil {
		log = slog.Default()
	}
	return &Output{log: log}
}

// Publish implements output.Output.
func (c *Output) Publish(r output.Report) error {
	c.log.Info("reading",
		"raw", r.Reading.Raw,
		"code", r.Reading.Code,
		"temperature", r.Reading.Temperature,
		"voltage", r.Reading.Voltage,
		"samples", r.Samples,
	)
	return nil
}

// Close implements output.Output.
func (c *Output) Close() error { return nil }
