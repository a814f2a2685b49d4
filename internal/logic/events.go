package logic

import "time"

// Diff returns the events implied by moving from prev to next.
// Order: WRONG_CODE, CODE_CHANGED, then the state change (if any).
func Diff(prev, next ControllerState, now time.Time) []Event {
	var events []Event

	emit := func(t EventType) {
		events = append(events, Event{
			Timestamp: now,
			Type:      t,
			State:     next.State,
			Failures:  next.Failures,
		})
	}

	if next.Failures > prev.Failures {
		emit(EventWrongCode)
	}
	if next.CurrentCode != prev.CurrentCode {
		emit(EventCodeChanged)
	}

	if next.State != prev.State {
		switch next.State {
		case StateOpened:
			emit(EventOpened)
		case StateClosed:
			emit(EventClosed)
		case StateProgramming:
			emit(EventProgramming)
		case StateAlarm:
			emit(EventAlarm)
		}
	}

	return events
}
