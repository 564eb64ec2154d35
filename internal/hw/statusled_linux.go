//go:build linux

package hw

import (
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOLight is a single LED on a GPIO output line.
type GPIOLight struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

// NewGPIOLight requests pin (BCM numbering) on gpiochip0 as an output,
// initially off.
func NewGPIOLight(pin int) (*GPIOLight, error) {
	chip, err := gpiocdev.NewChip("gpiochip0")
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}
	line, err := chip.RequestLine(pin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request status pin %d: %w", pin, err)
	}
	return &GPIOLight{chip: chip, line: line}, nil
}

// Set switches the LED.
func (l *GPIOLight) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := l.line.SetValue(v); err != nil {
		return fmt.Errorf("set status pin: %w", err)
	}
	return nil
}

// Close switches the LED off and returns the line to an input with
// pull-down, matching the Pi's boot default.
func (l *GPIOLight) Close() error {
	var errs []error
	if l.line != nil {
		if err := l.line.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("clear status pin: %w", err))
		}
		if err := l.line.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure status pin: %w", err))
		}
		if err := l.line.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close status pin: %w", err))
		}
	}
	if l.chip != nil {
		if err := l.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}
