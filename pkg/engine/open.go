package engine

import (
	"fmt"
	"log/slog"

	"github.com/itohio/adcmon/pkg/config"
)

// NewSource creates the conversion source named by cfg.Engine.Source.
func NewSource(cfg *config.Config, log *slog.Logger) (Source, error) {
	switch cfg.Engine.Source {
	case config.SourceSim:
		return NewSim(cfg.Sim, cfg.Engine), nil
	case config.SourceUART:
		return NewUART(cfg.Serial, cfg.Engine.BitWidth, log), nil
	case config.SourceADS1115:
		return NewADS1115(cfg.ADS1115, cfg.Engine, log)
	}
	return nil, fmt.Errorf("%w: unknown source %q", ErrInvalidConfig, cfg.Engine.Source)
}

// Open creates the source and a configured engine around it.
func Open(cfg *config.Config, log *slog.Logger) (*Continuous, error) {
	ecfg, err := ConfigFrom(cfg.Engine)
	if err != nil {
		return nil, err
	}

	src, err := NewSource(cfg, log)
	if err != nil {
		return nil, err
	}

	eng, err := New(ecfg, src, log)
	if err != nil {
		src.Close()
		return nil, err
	}
	return eng, nil
}
