package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/itohio/adcmon/pkg/config"
)

func defaultEngineConfig() config.EngineConfig {
	return config.Default().Engine
}

func TestAttenuationFullScale(t *testing.T) {
	assert.InDelta(t, 1.1, AttenuationFullScale(0), 1e-6)
	assert.InDelta(t, 4.3792, AttenuationFullScale(12), 1e-3)
}

func TestSim_SteadyLevel(t *testing.T) {
	s := NewSim(config.SimConfig{Level: 1.2, Seed: 1}, defaultEngineConfig())
	// 1.2 V / 4.3792 V * 1023 = 280.3
	for i := 0; i < 100; i++ {
		assert.Equal(t, uint16(280), s.next())
	}
}

func TestSim_Deterministic(t *testing.T) {
	cfg := config.Default().Sim
	a := NewSim(cfg, defaultEngineConfig())
	b := NewSim(cfg, defaultEngineConfig())

	for i := 0; i < 1000; i++ {
		assert.Equal(t, a.next(), b.next())
	}
}

func TestSim_Clamps(t *testing.T) {
	high := NewSim(config.SimConfig{Level: 10}, defaultEngineConfig())
	assert.Equal(t, uint16(1023), high.next())

	low := NewSim(config.SimConfig{Level: -1}, defaultEngineConfig())
	assert.Equal(t, uint16(0), low.next())
}

func TestSim_RunPacesToRate(t *testing.T) {
	s := NewSim(config.Default().Sim, defaultEngineConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var n int
	err := s.Run(ctx, func(code uint16) {
		n++
		assert.LessOrEqual(t, code, uint16(1023))
	})
	assert.NoError(t, err)

	// 20 kHz for 100 ms is 2000 samples.
	assert.Greater(t, n, 0)
	assert.LessOrEqual(t, n, 2500)
}
