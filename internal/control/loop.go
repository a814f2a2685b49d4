// Package control runs the lock's sample, step and emit cycle.
package control

import (
	"fmt"
	"time"

	"github.com/sweeney/code-lock/internal/logic"
	"github.com/sweeney/code-lock/internal/port"
)

// Result describes one completed iteration.
type Result struct {
	Input  logic.RawBits
	Output logic.RawBits
	State  logic.ControllerState
	Flags  logic.OutputFlags
	Events []logic.Event
}

// Loop owns all controller state. It is not safe for concurrent use;
// exactly one goroutine calls Iterate.
type Loop struct {
	port  port.Port
	state logic.ControllerState
	alarm *logic.BlinkTimer
	prev  logic.RawBits
}

// New initializes the controller: state Closed, code 0, previous input
// all zero, alarm blink channel restarted.
func New(p port.Port, now func() time.Time) *Loop {
	alarm := logic.NewBlinkTimer(now)
	alarm.Reset()
	return &Loop{
		port:  p,
		state: logic.InitialState(),
		alarm: alarm,
	}
}

// Iterate runs one cycle: read inputs, detect edges, step the state
// machine, encode and write the outputs. The cycle always completes.
// A failed read is replaced by the previous snapshot so no edges fire,
// and the output word is written every time.
// The returned error reports I/O failures only.
func (l *Loop) Iterate(now time.Time) (Result, error) {
	var errs []error

	cur, err := l.port.Read()
	if err != nil {
		errs = append(errs, fmt.Errorf("read inputs: %w", err))
		cur = l.prev
	}

	in := logic.Sample(l.prev, cur)

	prevState := l.state
	next, flags := logic.Step(l.state, in, l.alarm)
	l.state = next

	word := logic.Encode(flags)
	if err := l.port.Write(word); err != nil {
		errs = append(errs, fmt.Errorf("write outputs: %w", err))
	}

	l.prev = cur

	res := Result{
		Input:  cur,
		Output: word,
		State:  next,
		Flags:  flags,
		Events: logic.Diff(prevState, next, now),
	}

	if len(errs) == 1 {
		return res, errs[0]
	}
	if len(errs) > 1 {
		return res, fmt.Errorf("iteration errors: %v", errs)
	}
	return res, nil
}

// State returns the current controller state.
func (l *Loop) State() logic.ControllerState {
	return l.state
}
