package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Sampling defaults. The continuous engine of the reference board (ESP32 digital
// controller) only converts between SampleFreqLow and SampleFreqHigh.
const (
	SampleFreqLow  = 20_000
	SampleFreqHigh = 2_000_000

	DefaultSampleRate     = 20_000
	DefaultBufferSize     = 1024
	DefaultSamplesPerRead = 100
	DefaultBitWidth       = 10
	DefaultChannel        = 6
	DefaultUnit           = 1
	DefaultAttenuationDB  = 12
	DefaultReportInterval = time.Second
)

// A default sample rate outside the supported band does not compile:
// the conversions below overflow uint.
const (
	_ = uint(DefaultSampleRate - SampleFreqLow)
	_ = uint(SampleFreqHigh - DefaultSampleRate)
)

// Source kinds.
const (
	SourceSim     = "sim"
	SourceUART    = "uart"
	SourceADS1115 = "ads1115"
)

// Calibration variants.
const (
	VariantCubic  = "cubic"
	VariantLinear = "linear"
)

// Overflow policies.
const (
	OverflowFlush = "flush"
	OverflowDrop  = "drop"
)

// Config represents the application configuration.
type Config struct {
	Engine      EngineConfig      `yaml:"engine"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Report      ReportConfig      `yaml:"report"`
	Log         LogConfig         `yaml:"log"`
	Serial      SerialConfig      `yaml:"serial"`
	ADS1115     ADS1115Config     `yaml:"ads1115"`
	Sim         SimConfig         `yaml:"sim"`
	Outputs     []OutputConfig    `yaml:"outputs"`
}

// EngineConfig describes the continuous sampling engine. It is the one-time
// initialization contract: everything here must be valid before the first start.
type EngineConfig struct {
	Source         string  `yaml:"source"`           // sim, uart or ads1115
	SampleRate     int     `yaml:"sample_rate"`      // Conversions per second
	Unit           int     `yaml:"unit"`             // ADC unit (1 or 2)
	Channel        int     `yaml:"channel"`          // ADC channel
	AttenuationDB  float64 `yaml:"attenuation_db"`   // 0, 2.5, 6 or 12
	BitWidth       int     `yaml:"bit_width"`        // 9..12
	Format         string  `yaml:"format"`           // type1 or type2
	BufferSize     int     `yaml:"buffer_size"`      // Pool size in bytes
	SamplesPerRead int     `yaml:"samples_per_read"` // Results per conversion frame
	Overflow       string  `yaml:"overflow"`         // flush or drop
}

// CalibrationConfig selects the calibration transform and holds its coefficients.
// Polynomial coefficients are in ascending order (c0 + c1*x + c2*x^2 ...).
type CalibrationConfig struct {
	Variant          string    `yaml:"variant"`
	ReferenceVoltage float64   `yaml:"reference_voltage"`
	Correction       []float64 `yaml:"correction"`
	Temperature      []float64 `yaml:"temperature"`
	Slope            float64   `yaml:"slope"`
	Offset           float64   `yaml:"offset"`
}

// ReportConfig contains the reporting cadence.
type ReportConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// LogConfig contains logger settings.
type LogConfig struct {
	Level     string `yaml:"level"`  // debug, info, warn, error
	Format    string `yaml:"format"` // text or json
	AddSource bool   `yaml:"add_source"`
}

// SerialConfig contains serial port configuration for the uart source.
type SerialConfig struct {
	Port     string `yaml:"port"`
	BaudRate int    `yaml:"baud_rate"`
}

// ADS1115Config contains the I2C converter configuration.
type ADS1115Config struct {
	Bus       string  `yaml:"bus"`
	Address   int     `yaml:"address"`
	ReadyPin  string  `yaml:"ready_pin"`  // ALERT/RDY GPIO name; empty polls
	FullScale float64 `yaml:"full_scale"` // PGA full scale (V)
}

// SimConfig contains the simulated source configuration.
type SimConfig struct {
	Level  float64       `yaml:"level"`  // Mean input voltage (V)
	Swing  float64       `yaml:"swing"`  // Sine amplitude (V)
	Period time.Duration `yaml:"period"` // Sine period
	Noise  float64       `yaml:"noise"`  // Peak noise (V)
	Seed   int64         `yaml:"seed"`
}

// OutputConfig describes one report output.
type OutputConfig struct {
	Type string      `yaml:"type"` // console or mqtt
	MQTT *MQTTConfig `yaml:"mqtt,omitempty"`
}

// MQTTConfig contains MQTT broker settings.
type MQTTConfig struct {
	Server         string `yaml:"server"`
	Username       string `yaml:"username"`
	Password       string `yaml:"password"`
	ClientID       string `yaml:"client_id"`
	StateTopic     string `yaml:"state_topic"`
	DiscoveryTopic string `yaml:"discovery_topic"` // e.g. homeassistant/sensor/adcmon_%s/config
	DiscoveryName  string `yaml:"discovery_name"`
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			Source:         SourceSim,
			SampleRate:     DefaultSampleRate,
			Unit:           DefaultUnit,
			Channel:        DefaultChannel,
			AttenuationDB:  DefaultAttenuationDB,
			BitWidth:       DefaultBitWidth,
			Format:         "type1",
			BufferSize:     DefaultBufferSize,
			SamplesPerRead: DefaultSamplesPerRead,
			Overflow:       OverflowFlush,
		},
		Calibration: CalibrationConfig{
			Variant:          VariantCubic,
			ReferenceVoltage: 3.3,
			Correction:       []float64{40.4597, 0.976323, 0.000163748, -1.76614e-7},
			Temperature:      []float64{129.85, -0.150499, 0.0000343308},
			Slope:            -0.11373,
			Offset:           121.657,
		},
		Report: ReportConfig{
			Interval: DefaultReportInterval,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Serial: SerialConfig{
			Port:     "/dev/ttyACM0",
			BaudRate: 921600,
		},
		ADS1115: ADS1115Config{
			Bus:       "1",
			Address:   0x48,
			FullScale: 4.096,
		},
		Sim: SimConfig{
			Level:  1.2,
			Swing:  0.05,
			Period: time.Minute,
			Noise:  0.004,
			Seed:   1,
		},
		Outputs: []OutputConfig{
			{Type: "console"},
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// FrameSize returns the conversion frame size in bytes.
func (e EngineConfig) FrameSize() int {
	return e.SamplesPerRead * ResultBytes(e.Format)
}

// ResultBytes returns the width of one conversion result for a format name,
// or 0 for an unknown format.
func ResultBytes(format string) int {
	switch format {
	case "type1":
		return 2
	case "type2":
		return 4
	}
	return 0
}

// Validate reports configuration errors. Any error here is a deployment
// misconfiguration; the caller must not start sampling.
func (c *Config) Validate() error {
	var errs []error

	e := c.Engine
	switch e.Source {
	case SourceSim, SourceUART, SourceADS1115:
	default:
		errs = append(errs, fmt.Errorf("engine.source: unknown source %q", e.Source))
	}
	if e.SampleRate <= 0 {
		errs = append(errs, errors.New("engine.sample_rate must be > 0"))
	}
	if e.BitWidth < 9 || e.BitWidth > 12 {
		errs = append(errs, fmt.Errorf("engine.bit_width: %d not in 9..12", e.BitWidth))
	}
	if e.Unit != 1 && e.Unit != 2 {
		errs = append(errs, fmt.Errorf("engine.unit: %d not 1 or 2", e.Unit))
	}
	if e.Channel < 0 || e.Channel > 9 {
		errs = append(errs, fmt.Errorf("engine.channel: %d not in 0..9", e.Channel))
	}
	switch e.AttenuationDB {
	case 0, 2.5, 6, 12:
	default:
		errs = append(errs, fmt.Errorf("engine.attenuation_db: %v not one of 0, 2.5, 6, 12", e.AttenuationDB))
	}
	if ResultBytes(e.Format) == 0 {
		errs = append(errs, fmt.Errorf("engine.format: unknown format %q", e.Format))
	}
	if e.SamplesPerRead <= 0 {
		errs = append(errs, errors.New("engine.samples_per_read must be > 0"))
	} else if e.BufferSize < e.FrameSize() {
		errs = append(errs, fmt.Errorf("engine.buffer_size: %d smaller than one frame (%d bytes)", e.BufferSize, e.FrameSize()))
	}
	if e.Overflow != OverflowFlush && e.Overflow != OverflowDrop {
		errs = append(errs, fmt.Errorf("engine.overflow: unknown policy %q", e.Overflow))
	}

	cal := c.Calibration
	switch cal.Variant {
	case VariantCubic:
		if len(cal.Correction) != 4 {
			errs = append(errs, fmt.Errorf("calibration.correction: want 4 coefficients, got %d", len(cal.Correction)))
		}
		if len(cal.Temperature) != 3 {
			errs = append(errs, fmt.Errorf("calibration.temperature: want 3 coefficients, got %d", len(cal.Temperature)))
		}
	case VariantLinear:
	default:
		errs = append(errs, fmt.Errorf("calibration.variant: unknown variant %q", cal.Variant))
	}
	if cal.ReferenceVoltage <= 0 {
		errs = append(errs, errors.New("calibration.reference_voltage must be > 0"))
	}

	if c.Report.Interval < 0 {
		errs = append(errs, errors.New("report.interval must not be negative"))
	}

	for i, o := range c.Outputs {
		switch o.Type {
		case "console":
		case "mqtt":
			if o.MQTT == nil || o.MQTT.Server == "" {
				errs = append(errs, fmt.Errorf("outputs[%d]: mqtt output needs mqtt.server", i))
			}
		default:
			errs = append(errs, fmt.Errorf("outputs[%d]: unknown type %q", i, o.Type))
		}
	}

	return errors.Join(errs...)
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.Engine.Source == "" {
		c.Engine.Source = def.Engine.Source
	}
	if c.Engine.SampleRate == 0 {
		c.Engine.SampleRate = def.Engine.SampleRate
	}
	if c.Engine.Unit == 0 {
		c.Engine.Unit = def.Engine.Unit
	}
	if c.Engine.BitWidth == 0 {
		c.Engine.BitWidth = def.Engine.BitWidth
	}
	if c.Engine.Format == "" {
		c.Engine.Format = def.Engine.Format
	}
	if c.Engine.BufferSize == 0 {
		c.Engine.BufferSize = def.Engine.BufferSize
	}
	if c.Engine.SamplesPerRead == 0 {
		c.Engine.SamplesPerRead = def.Engine.SamplesPerRead
	}
	if c.Engine.Overflow == "" {
		c.Engine.Overflow = def.Engine.Overflow
	}

	if c.Calibration.Variant == "" {
		c.Calibration.Variant = def.Calibration.Variant
	}
	if c.Calibration.ReferenceVoltage == 0 {
		c.Calibration.ReferenceVoltage = def.Calibration.ReferenceVoltage
	}
	if len(c.Calibration.Correction) == 0 {
		c.Calibration.Correction = def.Calibration.Correction
	}
	if len(c.Calibration.Temperature) == 0 {
		c.Calibration.Temperature = def.Calibration.Temperature
	}

	if c.Report.Interval == 0 {
		c.Report.Interval = def.Report.Interval
	}

	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}

	if c.Serial.Port == "" {
		c.Serial.Port = def.Serial.Port
	}
	if c.Serial.BaudRate == 0 {
		c.Serial.BaudRate = def.Serial.BaudRate
	}

	if c.ADS1115.Bus == "" {
		c.ADS1115.Bus = def.ADS1115.Bus
	}
	if c.ADS1115.Address == 0 {
		c.ADS1115.Address = def.ADS1115.Address
	}
	if c.ADS1115.FullScale == 0 {
		c.ADS1115.FullScale = def.ADS1115.FullScale
	}

	if c.Sim.Period == 0 {
		c.Sim.Period = def.Sim.Period
	}

	if len(c.Outputs) == 0 {
		c.Outputs = def.Outputs
	}
}
