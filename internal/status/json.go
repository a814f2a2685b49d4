package status

import (
	"encoding/json"
	"fmt"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	State         string       `json:"state"`
	Failures      uint8        `json:"failures"`
	Outputs       OutputsJSON  `json:"outputs"`
	InputWord     string       `json:"input_word"`
	OutputWord    string       `json:"output_word"`
	Iterations    uint64       `json:"iterations"`
	IOErrors      uint64       `json:"io_errors"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Network       *NetworkJSON `json:"network,omitempty"`
	Config        ConfigJSON   `json:"config"`
}

// OutputsJSON reports the indicator outputs.
type OutputsJSON struct {
	Opened      bool `json:"opened"`
	Alarm       bool `json:"alarm"`
	Programming bool `json:"programming"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Opened      int `json:"opened"`
	Closed      int `json:"closed"`
	Programming int `json:"programming"`
	CodeChanged int `json:"code_changed"`
	WrongCode   int `json:"wrong_code"`
	Alarm       int `json:"alarm"`
}

// NetworkJSON is the JSON representation of network info.
type NetworkJSON struct {
	Type       string `json:"type"`
	IP         string `json:"ip"`
	Status     string `json:"status"`
	Gateway    string `json:"gateway"`
	WifiStatus string `json:"wifi_status"`
	SSID       string `json:"ssid"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PollMs      int64  `json:"poll_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Backend     string `json:"backend"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

func buildInner(snap Snapshot) StatusInner {
	flags := snap.Flags()

	return StatusInner{
		State:         snap.State.String(),
		Failures:      snap.Failures,
		Outputs:       OutputsJSON{Opened: flags.Opened, Alarm: flags.Alarm, Programming: flags.Programming},
		InputWord:     fmt.Sprintf("%08b", uint8(snap.Input)),
		OutputWord:    fmt.Sprintf("%08b", uint8(snap.Output)),
		Iterations:    snap.Iterations,
		IOErrors:      snap.IOErrors,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Opened:      snap.Counts.Opened,
			Closed:      snap.Counts.Closed,
			Programming: snap.Counts.Programming,
			CodeChanged: snap.Counts.CodeChanged,
			WrongCode:   snap.Counts.WrongCode,
			Alarm:       snap.Counts.Alarm,
		},
		Config: ConfigJSON{
			PollMs:      snap.Config.PollMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Backend:     snap.Config.Backend,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
	}
}

func buildNetwork(snap Snapshot, inner *StatusInner) {
	if snap.Network != nil {
		inner.Network = &NetworkJSON{
			Type:       snap.Network.Type,
			IP:         snap.Network.IP,
			Status:     snap.Network.Status,
			Gateway:    snap.Network.Gateway,
			WifiStatus: snap.Network.WifiStatus,
			SSID:       snap.Network.SSID,
		}
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	inner := buildInner(snap)
	buildNetwork(snap, &inner)

	data, _ := json.MarshalIndent(StatusJSON{Status: inner}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	buildNetwork(snap, &inner)

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
