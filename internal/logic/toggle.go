package logic

import "time"

// Button levels with the internal pull-up: the line idles high and the
// button shorts it to ground.
const (
	LevelIdle    = true
	LevelPressed = false
)

// Toggle turns raw button levels into debounced run/pause flips.
type Toggle struct {
	debounce   time.Duration
	mode       Mode
	lastLevel  bool
	lastToggle time.Time // zero until the first toggle
}

// NewToggle creates a toggle in PAUSED mode. initialLevel is the button
// level read at startup, so a button held during boot does not count as a press.
func NewToggle(debounce time.Duration, initialLevel bool) *Toggle {
	return &Toggle{
		debounce:  debounce,
		mode:      ModePaused,
		lastLevel: initialLevel,
	}
}

// Evaluate feeds one raw level observed at now and returns the resulting
// mode and whether it flipped on this call.
//
// Only an idle->pressed edge at least debounce after the previous toggle
// flips the mode. Edges inside the window are dropped, not deferred.
func (t *Toggle) Evaluate(level bool, now time.Time) (Mode, bool) {
	fired := false
	if t.lastLevel == LevelIdle && level == LevelPressed && t.windowElapsed(now) {
		t.mode = t.mode.Flip()
		t.lastToggle = now
		fired = true
	}
	t.lastLevel = level
	return t.mode, fired
}

func (t *Toggle) windowElapsed(now time.Time) bool {
	if t.lastToggle.IsZero() {
		return true
	}
	return now.Sub(t.lastToggle) >= t.debounce
}

// Mode returns the current mode.
func (t *Toggle) Mode() Mode {
	return t.mode
}

// LastToggle returns when the mode last flipped (zero if never).
func (t *Toggle) LastToggle() time.Time {
	return t.lastToggle
}
