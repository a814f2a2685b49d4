// Package port provides access to the lock's input and output ports with
// hardware abstraction. Inputs and outputs are exchanged as 8-bit words in
// the controller's fixed bit layout, whatever the backend.
//
// The GPIO implementation uses the Linux GPIO character device.
// The Modbus implementation drives a remote I/O module.
// The fake implementation allows testing without hardware.
package port

import "github.com/sweeney/code-lock/internal/logic"

// Port reads the input word and drives the output word.
type Port interface {
	// Read samples all input lines and returns them as one word.
	Read() (logic.RawBits, error)

	// Write drives all output lines from the word. Bits without a line
	// are ignored.
	Write(w logic.RawBits) error

	// Close releases port resources.
	Close() error
}

// Line binds a bit of the port word to a hardware line offset.
type Line struct {
	Bit    uint `yaml:"bit"`
	Offset int  `yaml:"offset"`
}

// GPIOConfig describes the GPIO wiring.
type GPIOConfig struct {
	Chip      string
	Inputs    []Line
	Outputs   []Line
	ActiveLow bool // switches and LEDs wired to ground
}

// Default wiring (BCM numbering on gpiochip0).
var (
	DefaultInputs = []Line{
		{Bit: 0, Offset: 4},  // code bit 0
		{Bit: 1, Offset: 17}, // code bit 1
		{Bit: 2, Offset: 27}, // code bit 2
		{Bit: 3, Offset: 22}, // code bit 3
		{Bit: 5, Offset: 5},  // read code
		{Bit: 7, Offset: 6},  // programming
	}
	DefaultOutputs = []Line{
		{Bit: 0, Offset: 23}, // opened
		{Bit: 1, Offset: 24}, // alarm
		{Bit: 7, Offset: 25}, // programming
	}
)

// DefaultChip is the GPIO chip used when none is configured.
const DefaultChip = "gpiochip0"

// pack builds a word from per-line values.
func pack(lines []Line, values []int) logic.RawBits {
	var w logic.RawBits
	for i, l := range lines {
		if i < len(values) && values[i] != 0 {
			w |= 1 << l.Bit
		}
	}
	return w
}

// unpack splits a word into per-line values.
func unpack(lines []Line, w logic.RawBits) []int {
	values := make([]int, len(lines))
	for i, l := range lines {
		if w&(1<<l.Bit) != 0 {
			values[i] = 1
		}
	}
	return values
}

func offsets(lines []Line) []int {
	out := make([]int, len(lines))
	for i, l := range lines {
		out[i] = l.Offset
	}
	return out
}
