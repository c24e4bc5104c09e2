package main

import (
	"fmt"
	"log/slog"

	"github.com/itohio/adcmon/pkg/config"
	"github.com/itohio/adcmon/pkg/output"
	"github.com/itohio/adcmon/pkg/output/console"
	"github.com/itohio/adcmon/pkg/output/mqtt"
)

func newOutput(cfg config.OutputConfig, log *slog.Logger) (output.Output, error) {
	switch cfg.Type {
	case "console":
		return console.New(log), nil
	case "mqtt":
		if cfg.MQTT == nil {
			return nil, fmt.Errorf("missing mqtt settings")
		}
		return mqtt.New(*cfg.MQTT, log)
	}
	return nil, fmt.Errorf("unknown output type %q", cfg.Type)
}
