package logic

import (
	"testing"
	"time"
)

func TestDiff(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		prev ControllerState
		next ControllerState
		want []EventType
	}{
		{
			name: "no change",
			prev: ControllerState{State: StateClosed},
			next: ControllerState{State: StateClosed},
		},
		{
			name: "opened",
			prev: ControllerState{State: StateClosed, Failures: 1},
			next: ControllerState{State: StateOpened},
			want: []EventType{EventOpened},
		},
		{
			name: "wrong code",
			prev: ControllerState{State: StateClosed},
			next: ControllerState{State: StateClosed, Failures: 1},
			want: []EventType{EventWrongCode},
		},
		{
			name: "third wrong code raises alarm",
			prev: ControllerState{State: StateClosed, Failures: 2},
			next: ControllerState{State: StateAlarm, Failures: 3},
			want: []EventType{EventWrongCode, EventAlarm},
		},
		{
			name: "programming",
			prev: ControllerState{State: StateOpened},
			next: ControllerState{State: StateProgramming},
			want: []EventType{EventProgramming},
		},
		{
			name: "staged code is silent",
			prev: ControllerState{State: StateProgramming, CurrentCode: 5},
			next: ControllerState{State: StateProgramming, CurrentCode: 5, NewCode: 9},
		},
		{
			name: "code committed",
			prev: ControllerState{State: StateProgramming, CurrentCode: 5, NewCode: 9},
			next: ControllerState{State: StateClosed, CurrentCode: 9, NewCode: 9},
			want: []EventType{EventCodeChanged, EventClosed},
		},
		{
			name: "closed from opened",
			prev: ControllerState{State: StateOpened},
			next: ControllerState{State: StateClosed},
			want: []EventType{EventClosed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			events := Diff(tt.prev, tt.next, now)
			if len(events) != len(tt.want) {
				t.Fatalf("got %d events, want %d: %+v", len(events), len(tt.want), events)
			}
			for i, e := range events {
				if e.Type != tt.want[i] {
					t.Errorf("event %d: got %s, want %s", i, e.Type, tt.want[i])
				}
				if e.State != tt.next.State {
					t.Errorf("event %d: State got %s, want %s", i, e.State, tt.next.State)
				}
				if e.Failures != tt.next.Failures {
					t.Errorf("event %d: Failures got %d, want %d", i, e.Failures, tt.next.Failures)
				}
				if !e.Timestamp.Equal(now) {
					t.Errorf("event %d: unexpected timestamp %v", i, e.Timestamp)
				}
			}
		})
	}
}

func TestEventCountsAdd(t *testing.T) {
	var c EventCounts
	c.Add([]Event{
		{Type: EventWrongCode},
		{Type: EventWrongCode},
		{Type: EventOpened},
		{Type: EventClosed},
		{Type: EventProgramming},
		{Type: EventCodeChanged},
		{Type: EventAlarm},
	})

	want := EventCounts{Opened: 1, Closed: 1, Programming: 1, CodeChanged: 1, WrongCode: 2, Alarm: 1}
	if c != want {
		t.Errorf("got %+v, want %+v", c, want)
	}
}
