package logic

import "time"

// Stopwatch measures time elapsed since its last Reset.
type Stopwatch struct {
	now   func() time.Time
	start time.Time
}

// NewStopwatch creates a Stopwatch started at now().
func NewStopwatch(now func() time.Time) *Stopwatch {
	return &Stopwatch{now: now, start: now()}
}

// Elapsed returns the time since the last Reset. It never goes negative.
func (s *Stopwatch) Elapsed() time.Duration {
	d := s.now().Sub(s.start)
	if d < 0 {
		return 0
	}
	return d
}

// Reset restarts the stopwatch at zero.
func (s *Stopwatch) Reset() {
	s.start = s.now()
}

// BlinkTimer generates a square wave from on/off durations.
// Each BlinkTimer owns its stopwatch, so channels never share state.
type BlinkTimer struct {
	sw *Stopwatch
}

// NewBlinkTimer creates a blink channel driven by now.
func NewBlinkTimer(now func() time.Time) *BlinkTimer {
	return &BlinkTimer{sw: NewStopwatch(now)}
}

// Tick returns the signal for the current elapsed time: ON while
// elapsed < on, OFF from on onwards. The cycle restarts once elapsed
// reaches on+off. Tick(0, 0) is always OFF.
func (b *BlinkTimer) Tick(on, off time.Duration) bool {
	elapsed := b.sw.Elapsed()

	// Exactly at on the signal is already OFF.
	signal := elapsed < on

	if elapsed >= on+off {
		b.sw.Reset()
	}
	return signal
}

// Reset restarts the cycle at the beginning of the ON phase.
func (b *BlinkTimer) Reset() {
	b.sw.Reset()
}

// Elapsed returns the position within the current cycle.
func (b *BlinkTimer) Elapsed() time.Duration {
	return b.sw.Elapsed()
}
