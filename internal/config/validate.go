package config

import (
	"fmt"

	"github.com/sweeney/code-lock/internal/port"
)

// Bits the controller reads and drives. Other bits may be wired but are ignored.
var (
	requiredInputBits  = []uint{0, 1, 2, 3, 5, 7}
	requiredOutputBits = []uint{0, 1, 7}
)

// Validate checks configuration correctness.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg.PollMs <= 0 {
		return fmt.Errorf("poll_ms must be positive, got %d", cfg.PollMs)
	}
	if cfg.HeartbeatMs < 0 {
		return fmt.Errorf("heartbeat_ms must not be negative, got %d", cfg.HeartbeatMs)
	}
	if cfg.MQTT.Broker == "" {
		return fmt.Errorf("mqtt: broker required")
	}

	switch cfg.Backend {
	case BackendGPIO:
		return validateGPIO(cfg.GPIO)
	case BackendModbusTCP, BackendModbusRTU:
		return validateModbus(cfg.Backend, cfg.Modbus)
	default:
		return fmt.Errorf("unknown backend %q (want %s, %s or %s)",
			cfg.Backend, BackendGPIO, BackendModbusTCP, BackendModbusRTU)
	}
}

func validateGPIO(g GPIOConfig) error {
	if err := validateLines("gpio inputs", g.Inputs, requiredInputBits); err != nil {
		return err
	}
	if err := validateLines("gpio outputs", g.Outputs, requiredOutputBits); err != nil {
		return err
	}

	// A line offset can be requested only once on a chip.
	used := make(map[int]string)
	for _, set := range []struct {
		name  string
		lines []port.Line
	}{{"input", g.Inputs}, {"output", g.Outputs}} {
		for _, l := range set.lines {
			if prev, exists := used[l.Offset]; exists {
				return fmt.Errorf("gpio: offset %d used by both %s and %s bit %d",
					l.Offset, prev, set.name, l.Bit)
			}
			used[l.Offset] = fmt.Sprintf("%s bit %d", set.name, l.Bit)
		}
	}
	return nil
}

func validateLines(what string, lines []port.Line, required []uint) error {
	seen := make(map[uint]bool)
	for _, l := range lines {
		if l.Bit > 7 {
			return fmt.Errorf("%s: bit %d out of range 0-7", what, l.Bit)
		}
		if l.Offset < 0 {
			return fmt.Errorf("%s: bit %d has negative offset %d", what, l.Bit, l.Offset)
		}
		if seen[l.Bit] {
			return fmt.Errorf("%s: bit %d mapped more than once", what, l.Bit)
		}
		seen[l.Bit] = true
	}
	for _, b := range required {
		if !seen[b] {
			return fmt.Errorf("%s: bit %d not mapped", what, b)
		}
	}
	return nil
}

func validateModbus(backend string, m ModbusConfig) error {
	if m.Endpoint == "" {
		return fmt.Errorf("%s: endpoint required", backend)
	}
	if m.TimeoutMs < 0 {
		return fmt.Errorf("%s: timeout_ms must not be negative", backend)
	}
	if backend != BackendModbusRTU {
		return nil
	}
	switch m.Parity {
	case "N", "E", "O":
	default:
		return fmt.Errorf("%s: parity must be N, E or O, got %q", backend, m.Parity)
	}
	if m.BaudRate <= 0 {
		return fmt.Errorf("%s: baud_rate must be positive", backend)
	}
	return nil
}
