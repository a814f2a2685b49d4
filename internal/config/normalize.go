package config

import (
	"sort"
	"strings"

	"github.com/sweeney/code-lock/internal/port"
)

// Normalize fills values a file may leave blank.
// It should be called before Validate.
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}

	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))

	if cfg.GPIO.Chip == "" {
		cfg.GPIO.Chip = port.DefaultChip
	}
	sortLines(cfg.GPIO.Inputs)
	sortLines(cfg.GPIO.Outputs)

	cfg.Modbus.Parity = strings.ToUpper(cfg.Modbus.Parity)
	if cfg.Modbus.Parity == "" {
		cfg.Modbus.Parity = "E"
	}
	if cfg.Modbus.TimeoutMs == 0 {
		cfg.Modbus.TimeoutMs = 1000
	}

	if cfg.MQTT.ClientID == "" {
		cfg.MQTT.ClientID = "code-lock"
	}
}

func sortLines(lines []port.Line) {
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Bit < lines[j].Bit })
}
