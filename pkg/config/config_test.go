package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, SourceSim, cfg.Engine.Source)
	assert.Equal(t, 20000, cfg.Engine.SampleRate)
	assert.Equal(t, 6, cfg.Engine.Channel)
	assert.Equal(t, 10, cfg.Engine.BitWidth)
	assert.Equal(t, 1024, cfg.Engine.BufferSize)
	assert.Equal(t, 100, cfg.Engine.SamplesPerRead)
	assert.Equal(t, 200, cfg.Engine.FrameSize())
	assert.Equal(t, VariantCubic, cfg.Calibration.Variant)
	assert.Equal(t, 3.3, cfg.Calibration.ReferenceVoltage)
	assert.Len(t, cfg.Calibration.Correction, 4)
	assert.Len(t, cfg.Calibration.Temperature, 3)
	assert.Equal(t, time.Second, cfg.Report.Interval)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load("nonexistent.yaml")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, SourceSim, cfg.Engine.Source)
}

func TestLoad_ValidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
engine:
  source: uart
  sample_rate: 2000
  channel: 3
  attenuation_db: 6
  bit_width: 12
  samples_per_read: 50

calibration:
  variant: linear
  reference_voltage: 3.1
  slope: -0.2
  offset: 100

report:
  interval: 250ms

log:
  level: debug
  format: json

serial:
  port: "/dev/ttyUSB1"

outputs:
  - type: console
  - type: mqtt
    mqtt:
      server: tcp://localhost:1883
      state_topic: adcmon/state
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	assert.Equal(t, SourceUART, cfg.Engine.Source)
	assert.Equal(t, 2000, cfg.Engine.SampleRate)
	assert.Equal(t, 3, cfg.Engine.Channel)
	assert.Equal(t, 6.0, cfg.Engine.AttenuationDB)
	assert.Equal(t, 12, cfg.Engine.BitWidth)
	assert.Equal(t, 100, cfg.Engine.FrameSize())
	assert.Equal(t, VariantLinear, cfg.Calibration.Variant)
	assert.Equal(t, 3.1, cfg.Calibration.ReferenceVoltage)
	assert.Equal(t, -0.2, cfg.Calibration.Slope)
	assert.Equal(t, 100.0, cfg.Calibration.Offset)
	assert.Equal(t, 250*time.Millisecond, cfg.Report.Interval)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "/dev/ttyUSB1", cfg.Serial.Port)
	assert.Equal(t, 921600, cfg.Serial.BaudRate) // default
	require.Len(t, cfg.Outputs, 2)
	require.NotNil(t, cfg.Outputs[1].MQTT)
	assert.Equal(t, "adcmon/state", cfg.Outputs[1].MQTT.StateTopic)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_InvalidYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	_, err = tmpfile.WriteString("invalid: yaml: content: [")
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test_config_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	yamlContent := `
engine:
  sample_rate: 40000
`

	_, err = tmpfile.WriteString(yamlContent)
	require.NoError(t, err)
	require.NoError(t, tmpfile.Close())

	cfg, err := Load(tmpfile.Name())
	require.NoError(t, err)

	// Should use defaults for missing fields
	assert.Equal(t, 40000, cfg.Engine.SampleRate)
	assert.Equal(t, SourceSim, cfg.Engine.Source)
	assert.Equal(t, "type1", cfg.Engine.Format)
	assert.Equal(t, time.Second, cfg.Report.Interval)
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Engine.SampleRate = 30000
	cfg.Calibration.Variant = VariantLinear

	tmpfile, err := os.CreateTemp("", "test_save_*.yaml")
	require.NoError(t, err)
	defer os.Remove(tmpfile.Name())

	err = cfg.Save(tmpfile.Name())
	require.NoError(t, err)

	loaded, err := Load(tmpfile.Name())
	require.NoError(t, err)
	assert.Equal(t, 30000, loaded.Engine.SampleRate)
	assert.Equal(t, VariantLinear, loaded.Calibration.Variant)
	assert.Equal(t, cfg.Calibration.Correction, loaded.Calibration.Correction)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{
			name:   "unknown source",
			mutate: func(c *Config) { c.Engine.Source = "dma" },
			errMsg: "engine.source",
		},
		{
			name:   "bit width too large",
			mutate: func(c *Config) { c.Engine.BitWidth = 16 },
			errMsg: "engine.bit_width",
		},
		{
			name:   "bad attenuation",
			mutate: func(c *Config) { c.Engine.AttenuationDB = 3 },
			errMsg: "engine.attenuation_db",
		},
		{
			name:   "unknown format",
			mutate: func(c *Config) { c.Engine.Format = "type9" },
			errMsg: "engine.format",
		},
		{
			name:   "buffer smaller than frame",
			mutate: func(c *Config) { c.Engine.BufferSize = 100 },
			errMsg: "engine.buffer_size",
		},
		{
			name:   "unknown variant",
			mutate: func(c *Config) { c.Calibration.Variant = "spline" },
			errMsg: "calibration.variant",
		},
		{
			name:   "short correction polynomial",
			mutate: func(c *Config) { c.Calibration.Correction = []float64{1, 2} },
			errMsg: "calibration.correction",
		},
		{
			name:   "mqtt without server",
			mutate: func(c *Config) { c.Outputs = []OutputConfig{{Type: "mqtt"}} },
			errMsg: "outputs[0]",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestResultBytes(t *testing.T) {
	assert.Equal(t, 2, ResultBytes("type1"))
	assert.Equal(t, 4, ResultBytes("type2"))
	assert.Equal(t, 0, ResultBytes(""))
}
