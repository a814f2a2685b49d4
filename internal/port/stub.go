//go:build !linux

package port

import (
	"errors"

	"github.com/sweeney/code-lock/internal/logic"
)

// GPIOPort is not available on non-Linux platforms.
type GPIOPort struct{}

// NewGPIOPort returns an error on non-Linux platforms.
func NewGPIOPort(cfg GPIOConfig) (*GPIOPort, error) {
	return nil, errors.New("gpio: not supported on this platform (requires Linux)")
}

// Read is not implemented on non-Linux platforms.
func (p *GPIOPort) Read() (logic.RawBits, error) {
	return 0, errors.New("gpio: not supported")
}

// Write is not implemented on non-Linux platforms.
func (p *GPIOPort) Write(w logic.RawBits) error {
	return errors.New("gpio: not supported")
}

// Close is not implemented on non-Linux platforms.
func (p *GPIOPort) Close() error {
	return nil
}
