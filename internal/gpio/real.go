//go:build linux

package gpio

import (
	"errors"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "air-quality"

// Real drives the button and fan lines on actual hardware using the Linux
// GPIO character device. It implements both Button and Fan.
type Real struct {
	chip   *gpiocdev.Chip
	button *gpiocdev.Line
	fan    *gpiocdev.Line
}

// NewReal requests the button line as a pulled-up input and the fan line as
// an output driven low.
func NewReal(chipName string, buttonPin, fanPin int) (*Real, error) {
	chip, err := gpiocdev.NewChip(chipName, gpiocdev.WithConsumer(consumer))
	if err != nil {
		return nil, fmt.Errorf("open gpio chip: %w", err)
	}

	fan, err := chip.RequestLine(fanPin, gpiocdev.AsOutput(0))
	if err != nil {
		chip.Close()
		return nil, fmt.Errorf("request fan pin %d: %w", fanPin, err)
	}

	// Button wired to GND, so rely on the internal pull-up.
	button, err := chip.RequestLine(buttonPin, gpiocdev.AsInput, gpiocdev.WithPullUp)
	if err != nil {
		fan.Close()
		chip.Close()
		return nil, fmt.Errorf("request button pin %d: %w", buttonPin, err)
	}

	return &Real{
		chip:   chip,
		button: button,
		fan:    fan,
	}, nil
}

// Read returns the raw button level (true = high = released).
func (r *Real) Read() (bool, error) {
	v, err := r.button.Value()
	if err != nil {
		return false, fmt.Errorf("read button pin: %w", err)
	}
	return v == 1, nil
}

// Set drives the fan line.
func (r *Real) Set(on bool) error {
	v := 0
	if on {
		v = 1
	}
	if err := r.fan.SetValue(v); err != nil {
		return fmt.Errorf("set fan pin: %w", err)
	}
	return nil
}

// Close drives the fan low and releases GPIO resources.
// The fan line is handed back as an input with pull-down (the Pi boot
// default) so the gate stays low after the process exits.
func (r *Real) Close() error {
	var errs []error

	if r.fan != nil {
		if err := r.fan.SetValue(0); err != nil {
			errs = append(errs, fmt.Errorf("drive fan low: %w", err))
		}
		if err := r.fan.Reconfigure(gpiocdev.AsInput, gpiocdev.WithPullDown); err != nil {
			errs = append(errs, fmt.Errorf("reconfigure fan pin: %w", err))
		}
		if err := r.fan.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close fan pin: %w", err))
		}
	}
	if r.button != nil {
		if err := r.button.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close button pin: %w", err))
		}
	}
	if r.chip != nil {
		if err := r.chip.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chip: %w", err))
		}
	}

	return errors.Join(errs...)
}
