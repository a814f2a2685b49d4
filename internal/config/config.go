// Package config loads the daemon configuration from a YAML file.
// Command-line flags are applied on top by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sweeney/code-lock/internal/port"
)

// Port backends.
const (
	BackendGPIO      = "gpio"
	BackendModbusTCP = "modbus-tcp"
	BackendModbusRTU = "modbus-rtu"
)

type Config struct {
	PollMs      int          `yaml:"poll_ms"`
	HeartbeatMs int          `yaml:"heartbeat_ms"`
	Backend     string       `yaml:"backend"`
	GPIO        GPIOConfig   `yaml:"gpio"`
	Modbus      ModbusConfig `yaml:"modbus"`
	MQTT        MQTTConfig   `yaml:"mqtt"`
	HTTP        HTTPConfig   `yaml:"http"`
}

// ---- PORTS ----

type GPIOConfig struct {
	Chip      string      `yaml:"chip"`
	ActiveLow bool        `yaml:"active_low"`
	Inputs    []port.Line `yaml:"inputs"`
	Outputs   []port.Line `yaml:"outputs"`
}

type ModbusConfig struct {
	Endpoint      string `yaml:"endpoint"`
	UnitID        uint8  `yaml:"unit_id"`
	TimeoutMs     int    `yaml:"timeout_ms"`
	InputAddress  uint16 `yaml:"input_address"`
	OutputAddress uint16 `yaml:"output_address"`

	// RTU only
	BaudRate int    `yaml:"baud_rate"`
	Parity   string `yaml:"parity"`
}

// ---- OUTER SURFACES ----

type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	ClientID string `yaml:"client_id"`
}

type HTTPConfig struct {
	// Addr is the status server address. Empty disables the server.
	Addr string `yaml:"addr"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		PollMs:      10,
		HeartbeatMs: int((15 * time.Minute).Milliseconds()),
		Backend:     BackendGPIO,
		GPIO: GPIOConfig{
			Chip:    port.DefaultChip,
			Inputs:  append([]port.Line(nil), port.DefaultInputs...),
			Outputs: append([]port.Line(nil), port.DefaultOutputs...),
		},
		Modbus: ModbusConfig{
			UnitID:    1,
			TimeoutMs: 1000,
			BaudRate:  19200,
			Parity:    "E",
		},
		MQTT: MQTTConfig{
			Broker:   "tcp://192.168.1.200:1883",
			ClientID: "code-lock",
		},
		HTTP: HTTPConfig{Addr: ":80"},
	}
}

// Load reads a YAML file on top of Default. Keys absent from the file keep
// their default values; unknown keys are rejected.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes on top of Default.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	// An empty document leaves the defaults.
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// Poll returns the control loop period.
func (c *Config) Poll() time.Duration {
	return time.Duration(c.PollMs) * time.Millisecond
}

// Heartbeat returns the heartbeat interval. Zero disables heartbeats.
func (c *Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// PortGPIO converts the GPIO section for port.NewGPIOPort.
func (c *Config) PortGPIO() port.GPIOConfig {
	return port.GPIOConfig{
		Chip:      c.GPIO.Chip,
		Inputs:    c.GPIO.Inputs,
		Outputs:   c.GPIO.Outputs,
		ActiveLow: c.GPIO.ActiveLow,
	}
}

// PortModbus converts the Modbus section for port.NewModbusPort.
func (c *Config) PortModbus() port.ModbusConfig {
	return port.ModbusConfig{
		Endpoint:      c.Modbus.Endpoint,
		RTU:           c.Backend == BackendModbusRTU,
		UnitID:        c.Modbus.UnitID,
		Timeout:       time.Duration(c.Modbus.TimeoutMs) * time.Millisecond,
		InputAddress:  c.Modbus.InputAddress,
		OutputAddress: c.Modbus.OutputAddress,
		BaudRate:      c.Modbus.BaudRate,
		Parity:        c.Modbus.Parity,
	}
}
