package logic

import "time"

// Heartbeat schedules periodic liveness events. The first beat is due one
// interval after start.
type Heartbeat struct {
	interval time.Duration
	last     time.Time
}

// NewHeartbeat returns a schedule anchored at start. A non-positive
// interval disables it.
func NewHeartbeat(interval time.Duration, start time.Time) *Heartbeat {
	return &Heartbeat{interval: interval, last: start}
}

// Due reports whether a beat is due at now and, if so, records it.
// Missed beats are not caught up.
func (h *Heartbeat) Due(now time.Time) bool {
	if h.interval <= 0 || now.Sub(h.last) < h.interval {
		return false
	}
	h.last = now
	return true
}
