// Package logic contains the pure decision logic of the air-quality monitor.
// This package has NO external dependencies (no GPIO, SPI, files, or time.Sleep).
// Time is always injectable via time.Time parameters.
package logic

import "time"

// Mode is the run/pause state toggled by the physical button.
type Mode string

const (
	ModeRunning Mode = "RUNNING"
	ModePaused  Mode = "PAUSED"
)

// Flip returns the opposite mode.
func (m Mode) Flip() Mode {
	if m == ModeRunning {
		return ModePaused
	}
	return ModeRunning
}

// Reading bounds of the 10-bit converter.
const (
	MinReading = 0
	MaxReading = 1023
)

// Sample is one accepted reading. It is a value type: the history buffer,
// the log and every sink each hold their own copy.
type Sample struct {
	Elapsed time.Duration // since start of the control loop
	Reading int           // 0..1023
	FanOn   bool
}

// Frame is what a visualization sink receives after each tick.
type Frame struct {
	Time    time.Time
	Mode    Mode
	Toggled bool     // mode flipped on this tick
	Sample  *Sample  // nil when no sample was taken (paused or faulted)
	Window  []Sample // copy of the history buffer, oldest first
	Err     error    // fault raised by this tick, if any
}
