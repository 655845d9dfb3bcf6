package logic

import "time"

// Decide reports whether the fan should run. It is re-evaluated from the
// instantaneous reading every tick; there is no hysteresis band, so a
// reading hovering at the threshold switches the fan every tick.
func Decide(reading int, mode Mode, threshold int) bool {
	return mode == ModeRunning && reading > threshold
}

// DisplayRange returns the scrolling x-axis range, in seconds, for a window
// of capacity samples taken every interval. The range is anchored to the
// newest sample and never starts before zero.
func DisplayRange(window []Sample, capacity int, interval time.Duration) (float64, float64) {
	span := float64(capacity) * interval.Seconds()
	if len(window) == 0 {
		return 0, span
	}
	newest := window[len(window)-1].Elapsed.Seconds()
	xmin := newest - span
	if xmin < 0 {
		xmin = 0
	}
	return xmin, xmin + span
}
