package logic

// InitialState is the controller state at power-up: closed, code 0000.
func InitialState() ControllerState {
	return ControllerState{State: StateClosed}
}

// Step advances the lock by one iteration and returns the next state and
// the indicator outputs. The alarm channel is only ticked while in Alarm.
//
// Opened and Programming indicators start OFF every iteration and are
// asserted only by the active state. An unknown state is kept as is with
// all outputs OFF.
func Step(s ControllerState, in Inputs, alarm *BlinkTimer) (ControllerState, OutputFlags) {
	var out OutputFlags

	switch s.State {
	case StateClosed:
		if in.ReadCode.Positive {
			if in.Code == s.CurrentCode {
				s.State = StateOpened
				s.Failures = 0
			} else if s.Failures < MaxFailures {
				s.Failures++
			}
		}
		if s.Failures >= MaxFailures {
			s.State = StateAlarm
		}

	case StateOpened:
		out.Opened = true
		if in.ReadCode.Negative {
			s.State = StateClosed
		} else if in.Programming.Positive {
			s.State = StateProgramming
		}

	case StateProgramming:
		out.Opened = true
		out.Programming = true
		if in.ReadCode.Positive {
			s.NewCode = in.Code
		}
		if in.Programming.Negative && s.NewCode != s.CurrentCode {
			s.CurrentCode = s.NewCode
			s.State = StateClosed
		}

	case StateAlarm:
		out.Alarm = alarm.Tick(AlarmBlinkOn, AlarmBlinkOff)
	}

	return s, out
}
