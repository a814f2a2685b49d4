// Package status provides a thread-safe status tracker for the code-lock daemon.
// The control loop writes it every iteration; HTTP handlers and MQTT system
// events read snapshots from it.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/code-lock/internal/logic"
)

// NetworkInfo contains network state. This is a local copy to avoid
// importing internal/mqtt from status.
type NetworkInfo struct {
	Type       string
	IP         string
	Status     string
	Gateway    string
	WifiStatus string
	SSID       string
}

// Config contains daemon configuration for display.
type Config struct {
	PollMs      int64
	HeartbeatMs int64
	Backend     string
	Broker      string
	HTTPAddr    string
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type and safe to use after the lock is released.
// It never holds the unlock code.
type Snapshot struct {
	State         logic.LockState
	Failures      uint8
	Input         logic.RawBits
	Output        logic.RawBits
	Iterations    uint64
	IOErrors      uint64
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Network       *NetworkInfo
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Flags decodes the output word.
func (s Snapshot) Flags() logic.OutputFlags {
	return logic.Decode(s.Output)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Update records one completed iteration.
// Called from runLoop on every tick.
func (t *Tracker) Update(state logic.ControllerState, in, out logic.RawBits, counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.State = state.State
	t.snap.Failures = state.Failures
	t.snap.Input = in
	t.snap.Output = out
	t.snap.Counts = counts
	t.snap.Iterations++
	t.mu.Unlock()
}

// RecordIOError counts a failed port read or write.
func (t *Tracker) RecordIOError() {
	t.mu.Lock()
	t.snap.IOErrors++
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// SetNetwork sets the network info.
func (t *Tracker) SetNetwork(info *NetworkInfo) {
	t.mu.Lock()
	t.snap.Network = info
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
