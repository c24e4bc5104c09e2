package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/adcmon/pkg/config"
)

func TestOpen_Sim(t *testing.T) {
	e, err := Open(config.Default(), nil)
	require.NoError(t, err)
	assert.Equal(t, StateConfigured, e.State())
	assert.Equal(t, 200, e.Config().FrameSize())
	assert.NoError(t, e.Deinit())
}

func TestOpen_RateOutsideSourceBand(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Source = config.SourceUART

	// The default rate is above what the serial link can carry.
	_, err := Open(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestOpen_UnknownSource(t *testing.T) {
	cfg := config.Default()
	cfg.Engine.Source = "dma"

	_, err := Open(cfg, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
