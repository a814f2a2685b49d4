// Package logic contains the pure control logic of the code lock.
// This package has NO external dependencies (no GPIO, MQTT, OS, or time.Sleep).
// Time is always injectable, either via time.Time parameters or a now func.
package logic

import "time"

// RawBits is a snapshot of an 8-bit port word at one sampling instant.
type RawBits uint8

// Input port layout.
const (
	BitReadCode    RawBits = 1 << 5 // "read code" trigger switch
	BitProgramming RawBits = 1 << 7 // "programming" trigger switch
	CodeMask       RawBits = 0x0F   // 4-bit code payload
)

// Output port layout.
const (
	OutOpened      RawBits = 1 << 0
	OutAlarm       RawBits = 1 << 1
	OutProgramming RawBits = 1 << 7
)

// Code is a 4-bit unlock code (0-15).
type Code uint8

// MaxFailures is the number of consecutive wrong codes that raises the alarm.
const MaxFailures = 3

// Alarm indicator blink pattern (2.5Hz, 50:50).
const (
	AlarmBlinkOn  = 200 * time.Millisecond
	AlarmBlinkOff = 200 * time.Millisecond
)

// LockState is the state of the lock controller.
type LockState uint8

const (
	StateClosed LockState = iota + 1
	StateOpened
	StateProgramming
	StateAlarm
)

func (s LockState) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpened:
		return "OPENED"
	case StateProgramming:
		return "PROGRAMMING"
	case StateAlarm:
		return "ALARM"
	default:
		return "UNKNOWN"
	}
}

// EdgeEvent reports the transitions of one input bit between two samples.
type EdgeEvent struct {
	Positive bool // 0 -> 1
	Negative bool // 1 -> 0
}

// Inputs is everything Step consumes for one iteration.
type Inputs struct {
	ReadCode    EdgeEvent
	Programming EdgeEvent
	Code        Code
}

// ControllerState is the complete mutable state of the lock.
// It is owned by exactly one control loop.
type ControllerState struct {
	State       LockState
	CurrentCode Code
	NewCode     Code
	Failures    uint8
}

// OutputFlags are the indicator outputs for one iteration.
type OutputFlags struct {
	Opened      bool
	Alarm       bool
	Programming bool
}

// EventType identifies a lock event.
type EventType string

const (
	EventOpened      EventType = "OPENED"
	EventClosed      EventType = "CLOSED"
	EventProgramming EventType = "PROGRAMMING"
	EventCodeChanged EventType = "CODE_CHANGED"
	EventWrongCode   EventType = "WRONG_CODE"
	EventAlarm       EventType = "ALARM"
)

// Event is a lock event to be published. Codes are never carried.
type Event struct {
	Timestamp time.Time
	Type      EventType
	State     LockState
	Failures  uint8
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Opened      int
	Closed      int
	Programming int
	CodeChanged int
	WrongCode   int
	Alarm       int
}

// Add counts the given events.
func (c *EventCounts) Add(events []Event) {
	for _, e := range events {
		switch e.Type {
		case EventOpened:
			c.Opened++
		case EventClosed:
			c.Closed++
		case EventProgramming:
			c.Programming++
		case EventCodeChanged:
			c.CodeChanged++
		case EventWrongCode:
			c.WrongCode++
		case EventAlarm:
			c.Alarm++
		}
	}
}
