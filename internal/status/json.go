package status

import (
	"encoding/json"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event          string       `json:"event,omitempty"`
	Reason         string       `json:"reason,omitempty"`
	Mode           string       `json:"mode"`
	LastReading    *int         `json:"last_reading"`
	FanOn          bool         `json:"fan_on"`
	LastSampleTime string       `json:"last_sample_time,omitempty"`
	Samples        int          `json:"samples"`
	Toggles        int          `json:"toggles"`
	Faults         int          `json:"faults"`
	LastError      string       `json:"last_error,omitempty"`
	UptimeSeconds  int64        `json:"uptime_seconds"`
	StartTime      string       `json:"start_time"`
	Timestamp      string       `json:"timestamp"`
	MQTT           MQTTStatus   `json:"mqtt"`
	Config         ConfigJSON   `json:"config"`
	DisplayRange   [2]float64   `json:"display_range"`
	Window         []SampleJSON `json:"window"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// ConfigJSON is the JSON representation of monitor config.
type ConfigJSON struct {
	IntervalMs  int64  `json:"interval_ms"`
	DebounceMs  int64  `json:"debounce_ms"`
	HeartbeatMs int64  `json:"heartbeat_ms"`
	Threshold   int    `json:"threshold"`
	MaxPoints   int    `json:"max_points"`
	Channel     int    `json:"adc_channel"`
	LogFile     string `json:"log_file"`
	Broker      string `json:"broker"`
	HTTPAddr    string `json:"http_addr"`
}

// SampleJSON is one point of the history window.
type SampleJSON struct {
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Reading        int     `json:"reading"`
	FanOn          bool    `json:"fan_on"`
}

// FormatJSON returns the JSON status for the web endpoint.
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the compact JSON status published with MQTT
// lifecycle events.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason
	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}

func buildInner(snap Snapshot) StatusInner {
	xmin, xmax := snap.DisplayRange()
	inner := StatusInner{
		Mode:          string(snap.Mode),
		FanOn:         snap.FanOn,
		Samples:       snap.Samples,
		Toggles:       snap.Toggles,
		Faults:        snap.Faults,
		LastError:     snap.LastError,
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Config: ConfigJSON{
			IntervalMs:  snap.Config.IntervalMs,
			DebounceMs:  snap.Config.DebounceMs,
			HeartbeatMs: snap.Config.HeartbeatMs,
			Threshold:   snap.Config.Threshold,
			MaxPoints:   snap.Config.MaxPoints,
			Channel:     snap.Config.Channel,
			LogFile:     snap.Config.LogFile,
			Broker:      snap.Config.Broker,
			HTTPAddr:    snap.Config.HTTPAddr,
		},
		DisplayRange: [2]float64{xmin, xmax},
		Window:       make([]SampleJSON, 0, len(snap.Window)),
	}

	if snap.Last != nil {
		reading := snap.Last.Reading
		inner.LastReading = &reading
		inner.LastSampleTime = snap.LastTime.UTC().Format(time.RFC3339Nano)
	}
	for _, s := range snap.Window {
		inner.Window = append(inner.Window, SampleJSON{
			ElapsedSeconds: s.Elapsed.Seconds(),
			Reading:        s.Reading,
			FanOn:          s.FanOn,
		})
	}

	return inner
}
