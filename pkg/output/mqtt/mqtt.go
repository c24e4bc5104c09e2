// Package mqtt publishes readings to an MQTT broker, with optional Home Assistant
// discovery for the temperature and voltage sensors.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/itohio/adcmon/pkg/config"
	"github.com/itohio/adcmon/pkg/output"
)

const (
	DefaultServer     = "tcp://localhost:1883"
	DefaultClientID   = "adcmon"
	DefaultStateTopic = "adcmon/state"

	publishTimeout = 5 * time.Second
	quiesceMillis  = 250
)

// publisher is the part of mqtt.Client the output uses.
type publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
	Disconnect(quiesce uint)
}

// Output publishes JSON state messages.
type Output struct {
	client     publisher
	stateTopic string
	log        *slog.Logger
}

var _ output.Output = (*Output)(nil)

// State is the JSON state message.
type State struct {
	Raw         uint32    `json:"raw"`
	Code        uint32    `json:"code"`
	Temperature float32   `json:"temperature"`
	Voltage     float32   `json:"voltage"`
	Samples     int       `json:"samples"`
	Time        time.Time `json:"time"`
}

// discovery is a Home Assistant MQTT discovery payload.
type discovery struct {
	Name                string `json:"name"`
	StateTopic          string `json:"state_topic"`
	UnitOfMeasurement   string `json:"unit_of_measurement"`
	DeviceClass         string `json:"device_class"`
	StateClass          string `json:"state_class"`
	ValueTemplate       string `json:"value_template"`
	JSONAttributesTopic string `json:"json_attributes_topic"`
	UniqueID            string `json:"unique_id,omitempty"`
}

type sensor struct {
	key         string
	unit        string
	deviceClass string
}

var sensors = []sensor{
	{key: "temperature", unit: "°C", deviceClass: "temperature"},
	{key: "voltage", unit: "V", deviceClass: "voltage"},
}

// New connects to the broker and publishes discovery if configured.
func New(cfg config.MQTTConfig, log *slog.Logger) (*Output, error) {
	cfg = withDefaults(cfg)

	opts := mqtt.NewClientOptions().AddBroker(cfg.Server).SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
	}
	if cfg.Password != "" {
		opts.SetPassword(cfg.Password)
	}
	opts.SetAutoReconnect(true)

	client := mqtt.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(publishTimeout) {
		return nil, fmt.Errorf("mqtt connect %s: timeout", cfg.Server)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Server, err)
	}

	return newOutput(client, cfg, log), nil
}

func newOutput(client publisher, cfg config.MQTTConfig, log *slog.Logger) *Output {
	cfg = withDefaults(cfg)
	if log == nil {
		log = slog.Default()
	}

	m := &Output{client: client, stateTopic: cfg.StateTopic, log: log}
	if cfg.DiscoveryTopic != "" {
		m.publishDiscovery(cfg)
	}
	return m
}

func withDefaults(cfg config.MQTTConfig) config.MQTTConfig {
	if cfg.Server == "" {
		cfg.Server = DefaultServer
	}
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.StateTopic == "" {
		cfg.StateTopic = DefaultStateTopic
	}
	return cfg
}

// publishDiscovery publishes retained discovery payloads. A topic containing %s
// gets one entry per sensor; otherwise only the temperature sensor is announced.
// Discovery failures are logged and do not stop the output.
func (m *Output) publishDiscovery(cfg config.MQTTConfig) {
	name := cfg.DiscoveryName
	if name == "" {
		name = "ADC " + cfg.ClientID
	}

	list := sensors
	if !strings.Contains(cfg.DiscoveryTopic, "%s") {
		list = sensors[:1]
	}

	for _, s := range list {
		topic := cfg.DiscoveryTopic
		if strings.Contains(topic, "%s") {
			topic = fmt.Sprintf(topic, s.key)
		}
		payload := discovery{
			Name:                name + " " + s.key,
			StateTopic:          m.stateTopic,
			UnitOfMeasurement:   s.unit,
			DeviceClass:         s.deviceClass,
			StateClass:          "measurement",
			ValueTemplate:       "{{ value_json." + s.key + " }}",
			JSONAttributesTopic: m.stateTopic,
			UniqueID:            cfg.ClientID + "_" + s.key,
		}
		if err := m.publishJSON(topic, true, payload); err != nil {
			m.log.Warn("mqtt discovery publish failed", "topic", topic, "err", err)
		}
	}
}

// Publish implements output.Output.
func (m *Output) Publish(r output.Report) error {
	return m.publishJSON(m.stateTopic, false, State{
		Raw:         r.Reading.Raw,
		Code:        r.Reading.Code,
		Temperature: r.Reading.Temperature,
		Voltage:     r.Reading.Voltage,
		Samples:     r.Samples,
		Time:        r.Time,
	})
}

// Close implements output.Output.
func (m *Output) Close() error {
	if m.client != nil {
		m.client.Disconnect(quiesceMillis)
	}
	return nil
}

func (m *Output) publishJSON(topic string, retained bool, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	token := m.client.Publish(topic, 0, retained, b)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("mqtt publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %s: %w", topic, err)
	}
	return nil
}
