package logic

// Encode packs the indicator flags into an output word. Every call builds
// the word from scratch; bits other than 0, 1 and 7 are always 0.
func Encode(f OutputFlags) RawBits {
	var w RawBits
	if f.Opened {
		w |= OutOpened
	}
	if f.Alarm {
		w |= OutAlarm
	}
	if f.Programming {
		w |= OutProgramming
	}
	return w
}

// Decode is the inverse of Encode. Bits outside the output layout are ignored.
func Decode(w RawBits) OutputFlags {
	return OutputFlags{
		Opened:      w&OutOpened != 0,
		Alarm:       w&OutAlarm != 0,
		Programming: w&OutProgramming != 0,
	}
}
