package port

import (
	"errors"

	"github.com/sweeney/code-lock/internal/logic"
)

// FakePort is a test double that returns scripted input words and records
// every output word written.
type FakePort struct {
	// Samples contains scripted input words to return.
	// Each call to Read() consumes the next sample.
	Samples []logic.RawBits

	// index tracks current position in Samples
	index int

	// Written records every word passed to Write, in order.
	Written []logic.RawBits

	// Closed tracks if Close was called
	Closed bool

	// ReadError, if set, will be returned by Read()
	ReadError error

	// WriteError, if set, will be returned by Write() (the word is still recorded)
	WriteError error
}

// NewFakePort creates a FakePort with the given samples.
func NewFakePort(samples []logic.RawBits) *FakePort {
	return &FakePort{Samples: samples}
}

// Read returns the next scripted sample.
// If samples are exhausted, returns the last sample repeatedly.
func (f *FakePort) Read() (logic.RawBits, error) {
	if f.ReadError != nil {
		return 0, f.ReadError
	}

	if len(f.Samples) == 0 {
		return 0, errors.New("no samples configured")
	}

	sample := f.Samples[f.index]
	if f.index < len(f.Samples)-1 {
		f.index++
	}

	return sample, nil
}

// Write records the output word.
func (f *FakePort) Write(w logic.RawBits) error {
	f.Written = append(f.Written, w)
	return f.WriteError
}

// Last returns the most recently written word, or 0 if none.
func (f *FakePort) Last() logic.RawBits {
	if len(f.Written) == 0 {
		return 0
	}
	return f.Written[len(f.Written)-1]
}

// Close marks the port as closed.
func (f *FakePort) Close() error {
	f.Closed = true
	return nil
}

// Reset resets the port to the beginning of samples and clears recorded output.
func (f *FakePort) Reset() {
	f.index = 0
	f.Written = nil
	f.Closed = false
}
