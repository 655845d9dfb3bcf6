// Package mqtt publishes samples and lifecycle events to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/air-quality/internal/logger"
	"github.com/sweeney/air-quality/internal/logic"
)

// DefaultTopic is the topic samples are published to when none is configured.
const DefaultTopic = "air-quality/sensor/samples"

// System event names.
const (
	EventStartup   = "STARTUP"
	EventShutdown  = "SHUTDOWN"
	EventHeartbeat = "HEARTBEAT"
	EventMode      = "MODE"
	EventOffline   = "OFFLINE"
)

// SystemTopic returns the lifecycle topic that sits beside a sample topic.
func SystemTopic(topic string) string {
	return topic + "/system"
}

// Publisher publishes samples and system events.
type Publisher interface {
	// Publish sends one accepted sample. at is its wall-clock time.
	// Errors are reported to the caller and never stop sampling.
	Publish(s logic.Sample, at time.Time) error

	// PublishSystem sends a lifecycle event.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// SystemEvent is a lifecycle event (startup, shutdown, heartbeat, mode change).
type SystemEvent struct {
	Timestamp time.Time
	Event     string
	Reason    string     // shutdown only, e.g. "SIGTERM"
	Mode      logic.Mode // mode after the event, if known
	Threshold int        // startup only
	Retained  bool

	// Status, when set, is a pre-formatted status snapshot published in
	// place of the fields above.
	Status []byte
}

// Payload is the message published for each sample.
type Payload struct {
	Sample SamplePayload `json:"sample"`
}

// SamplePayload contains the sample details.
type SamplePayload struct {
	Timestamp      string  `json:"timestamp"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Reading        int     `json:"reading"`
	FanOn          bool    `json:"fan_on"`
}

// FormatPayload creates the JSON payload for a sample.
func FormatPayload(s logic.Sample, at time.Time) ([]byte, error) {
	payload := Payload{
		Sample: SamplePayload{
			Timestamp:      at.UTC().Format(time.RFC3339Nano),
			ElapsedSeconds: s.Elapsed.Seconds(),
			Reading:        s.Reading,
			FanOn:          s.FanOn,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the message published for system events.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
	Mode      string `json:"mode,omitempty"`
	Threshold int    `json:"threshold,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.Status != nil {
		return event.Status, nil
	}
	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
			Mode:      string(event.Mode),
			Threshold: event.Threshold,
		},
	}
	return json.Marshal(payload)
}

// Sink forwards control frames to a Publisher: one message per accepted
// sample and a MODE event per toggle.
type Sink struct {
	pub Publisher
}

// NewSink wraps pub.
func NewSink(pub Publisher) *Sink {
	return &Sink{pub: pub}
}

// Emit publishes what the frame carries. Failures are logged only.
func (s *Sink) Emit(f logic.Frame) {
	if f.Toggled {
		ev := SystemEvent{Timestamp: f.Time, Event: EventMode, Mode: f.Mode}
		if err := s.pub.PublishSystem(ev); err != nil {
			logger.Warn().Err(err).Msg("mqtt mode publish failed")
		}
	}
	if f.Sample != nil {
		if err := s.pub.Publish(*f.Sample, f.Time); err != nil {
			logger.Warn().Err(err).Msg("mqtt sample publish failed")
		}
	}
}
