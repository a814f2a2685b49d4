//go:build linux

package port

import (
	"fmt"

	"github.com/sweeney/code-lock/internal/logic"
	"github.com/warthog618/go-gpiocdev"
)

// GPIOPort reads switches and drives LEDs using the Linux GPIO character device.
type GPIOPort struct {
	chip   *gpiocdev.Chip
	in     *gpiocdev.Lines
	out    *gpiocdev.Lines
	cfg    GPIOConfig
	inVals []int
}

// NewGPIOPort requests the configured lines. Outputs start low.
func NewGPIOPort(cfg GPIOConfig) (*GPIOPort, error) {
	if cfg.Chip == "" {
		cfg.Chip = DefaultChip
	}

	chip, err := gpiocdev.NewChip(cfg.Chip, gpiocdev.WithConsumer("code-lock"))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	// Inputs use pull-down to match Pi boot defaults, so an open switch reads 0.
	inOpts := []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullDown}
	outOpts := []gpiocdev.LineReqOption{gpiocdev.AsOutput(make([]int, len(cfg.Outputs))...)}
	if cfg.ActiveLow {
		inOpts = []gpiocdev.LineReqOption{gpiocdev.AsInput, gpiocdev.WithPullUp, gpiocdev.AsActiveLow}
		outOpts = append(outOpts, gpiocdev.AsActiveLow)
	}

	in, err := chip.RequestLines(offsets(cfg.Inputs), inOpts...)
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request input lines %v: %w", offsets(cfg.Inputs), err)
	}

	out, err := chip.RequestLines(offsets(cfg.Outputs), outOpts...)
	if err != nil {
		in.Close()
		chip.Close()
		return nil, fmt.Errorf("request output lines %v: %w", offsets(cfg.Outputs), err)
	}

	return &GPIOPort{
		chip:   chip,
		in:     in,
		out:    out,
		cfg:    cfg,
		inVals: make([]int, len(cfg.Inputs)),
	}, nil
}

// Read returns the logical level of every input line packed into a word.
func (p *GPIOPort) Read() (logic.RawBits, error) {
	if err := p.in.Values(p.inVals); err != nil {
		return 0, fmt.Errorf("read input lines: %w", err)
	}
	return pack(p.cfg.Inputs, p.inVals), nil
}

// Write sets every output line from the word.
func (p *GPIOPort) Write(w logic.RawBits) error {
	if err := p.out.SetValues(unpack(p.cfg.Outputs, w)); err != nil {
		return fmt.Errorf("write output lines: %w", err)
	}
	return nil
}

// Close switches the LEDs off and returns every line to input with pull-down
// (Pi boot defaults) before releasing it, so nothing is left driven after exit.
func (p *GPIOPort) Close() error {
	var errs []error

	if p.out != nil {
		if err := p.out.SetValues(make([]int, len(p.cfg.Outputs))); err != nil {
			errs = append(errs, fmt.Errorf("clear output lines: %w", err))
		}
		if err := p.out.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure output lines: %w", err))
		}
		if err := p.out.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close output lines: %w", err))
		}
	}
	if p.in != nil {
		if err := p.in.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure input lines: %w", err))
		}
		if err := p.in.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close input lines: %w", err))
		}
	}
	if p.chip != nil {
		if err := p.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
