// Package status provides a thread-safe view of the monitor's state for the
// HTTP status page.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/air-quality/internal/logic"
)

// ConnectionStatus reports whether a broker connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// Config contains monitor configuration for display.
type Config struct {
	IntervalMs  int64
	DebounceMs  int64
	HeartbeatMs int64
	Threshold   int
	MaxPoints   int
	Channel     int
	LogFile     string
	Broker      string
	HTTPAddr    string
}

// Interval returns the sampling interval.
func (c Config) Interval() time.Duration {
	return time.Duration(c.IntervalMs) * time.Millisecond
}

// Heartbeat returns the MQTT heartbeat interval (0 when disabled).
func (c Config) Heartbeat() time.Duration {
	return time.Duration(c.HeartbeatMs) * time.Millisecond
}

// Snapshot is a point-in-time view of monitor state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Mode          logic.Mode
	FanOn         bool
	Last          *logic.Sample
	LastTime      time.Time
	Window        []logic.Sample
	Samples       int
	Toggles       int
	Faults        int
	LastError     string
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the monitor started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// DisplayRange returns the chart's x-axis range in seconds.
func (s Snapshot) DisplayRange() (float64, float64) {
	return logic.DisplayRange(s.Window, s.Config.MaxPoints, s.Config.Interval())
}

// Tracker holds mutable monitor state behind an RWMutex. It is fed by the
// control loop as a sink.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
	conn ConnectionStatus
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			Mode:      logic.ModePaused,
			StartTime: startTime,
			Config:    cfg,
		},
	}
}

// Emit records one control frame.
func (t *Tracker) Emit(f logic.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.snap.Mode = f.Mode
	t.snap.Window = f.Window
	// A tick without a sample always leaves the fan off.
	t.snap.FanOn = f.Sample != nil && f.Sample.FanOn
	if f.Toggled {
		t.snap.Toggles++
	}
	if f.Sample != nil {
		s := *f.Sample
		t.snap.Last = &s
		t.snap.LastTime = f.Time
		t.snap.Samples++
	}
	if f.Err != nil {
		t.snap.Faults++
		t.snap.LastError = f.Err.Error()
	}
}

// WatchConnection makes snapshots report c's connection state.
func (t *Tracker) WatchConnection(c ConnectionStatus) {
	t.mu.Lock()
	t.conn = c
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the monitor state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	conn := t.conn
	t.mu.RUnlock()

	s.Window = append([]logic.Sample(nil), s.Window...)
	if s.Last != nil {
		last := *s.Last
		s.Last = &last
	}
	if conn != nil {
		s.MQTTConnected = conn.IsConnected()
	}
	s.Now = time.Now()
	return s
}
