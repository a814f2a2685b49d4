package logic

// Detect reports the edges of the bits selected by mask between two
// successive snapshots. The caller owns the previous snapshot and must
// replace it with current after each call. Start with a zero previous
// snapshot so nothing fires at boot.
func Detect(previous, current, mask RawBits) EdgeEvent {
	pos := ^previous & current
	neg := previous & ^current
	return EdgeEvent{
		Positive: pos&mask != 0,
		Negative: neg&mask != 0,
	}
}

// CodeOf extracts the 4-bit code payload from an input snapshot.
func CodeOf(current RawBits) Code {
	return Code(current & CodeMask)
}

// Sample derives the step inputs for one iteration.
func Sample(previous, current RawBits) Inputs {
	return Inputs{
		ReadCode:    Detect(previous, current, BitReadCode),
		Programming: Detect(previous, current, BitProgramming),
		Code:        CodeOf(current),
	}
}
