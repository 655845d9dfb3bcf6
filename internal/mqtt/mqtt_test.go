package mqtt

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/air-quality/internal/logic"
)

var at = time.Date(2026, 2, 2, 22, 18, 12, 250_000_000, time.UTC)

func TestFormatPayload(t *testing.T) {
	s := logic.Sample{Elapsed: 1500 * time.Millisecond, Reading: 412, FanOn: true}

	payload, err := FormatPayload(s, at)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if parsed.Sample.Timestamp != "2026-02-02T22:18:12.25Z" {
		t.Errorf("unexpected timestamp: %s", parsed.Sample.Timestamp)
	}
	if parsed.Sample.ElapsedSeconds != 1.5 {
		t.Errorf("unexpected elapsed: %v", parsed.Sample.ElapsedSeconds)
	}
	if parsed.Sample.Reading != 412 {
		t.Errorf("unexpected reading: %d", parsed.Sample.Reading)
	}
	if !parsed.Sample.FanOn {
		t.Error("expected fan_on true")
	}
}

func TestFormatPayloadExactJSON(t *testing.T) {
	s := logic.Sample{Elapsed: 2 * time.Second, Reading: 100}

	payload, err := FormatPayload(s, time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"sample":{"timestamp":"2026-02-02T22:18:12Z","elapsed_seconds":2,"reading":100,"fan_on":false}}`
	if string(payload) != want {
		t.Errorf("got  %s\nwant %s", payload, want)
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("UTC+2", 2*60*60)
	payload, err := FormatPayload(logic.Sample{}, time.Date(2026, 2, 3, 0, 18, 12, 0, loc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if parsed.Sample.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Sample.Timestamp)
	}
}

func TestSystemTopic(t *testing.T) {
	if got := SystemTopic(DefaultTopic); got != "air-quality/sensor/samples/system" {
		t.Errorf("unexpected system topic: %s", got)
	}
}

func TestFormatSystemPayloadStartupExactJSON(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC),
		Event:     EventStartup,
		Mode:      logic.ModePaused,
		Threshold: 300,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"system":{"timestamp":"2026-02-02T22:18:12Z","event":"STARTUP","mode":"PAUSED","threshold":300}}`
	if string(payload) != want {
		t.Errorf("got  %s\nwant %s", payload, want)
	}
}

func TestFormatSystemPayloadShutdown(t *testing.T) {
	for _, reason := range []string{"SIGTERM", "SIGINT", "WINDOW_CLOSED", "FAULT"} {
		t.Run(reason, func(t *testing.T) {
			payload, err := FormatSystemPayload(SystemEvent{Timestamp: at, Event: EventShutdown, Reason: reason})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed SystemPayload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}
			if parsed.System.Event != "SHUTDOWN" {
				t.Errorf("unexpected event: %s", parsed.System.Event)
			}
			if parsed.System.Reason != reason {
				t.Errorf("unexpected reason: %s", parsed.System.Reason)
			}
		})
	}
}

func TestFormatSystemPayloadPrefersStatus(t *testing.T) {
	status := []byte(`{"status":{"event":"HEARTBEAT","mode":"RUNNING"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: at, Event: EventHeartbeat, Mode: logic.ModePaused, Status: status})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(status) {
		t.Errorf("got %s, want the status snapshot verbatim", payload)
	}
}

func TestWillPayloadFormat(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{Timestamp: at, Event: EventOffline})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var raw map[string]map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if raw["system"]["event"] != "OFFLINE" {
		t.Errorf("unexpected event: %v", raw["system"]["event"])
	}
	for _, key := range []string{"reason", "mode", "threshold"} {
		if _, ok := raw["system"][key]; ok {
			t.Errorf("expected %s to be omitted", key)
		}
	}
}

func TestFakePublisherRecordsTopics(t *testing.T) {
	fake := NewFakePublisher()
	s := logic.Sample{Elapsed: time.Second, Reading: 320, FanOn: true}

	if err := fake.Publish(s, at); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := fake.PublishSystem(SystemEvent{Timestamp: at, Event: EventStartup}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fake.Samples) != 1 || fake.Samples[0] != s {
		t.Fatalf("unexpected samples: %+v", fake.Samples)
	}
	if len(fake.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(fake.Messages))
	}
	if fake.Messages[0].Topic != DefaultTopic {
		t.Errorf("sample topic: got %q", fake.Messages[0].Topic)
	}
	if fake.Messages[1].Topic != DefaultTopic+"/system" {
		t.Errorf("system topic: got %q", fake.Messages[1].Topic)
	}
	if !strings.Contains(string(fake.Messages[0].Payload), `"reading":320`) {
		t.Errorf("sample payload: got %s", fake.Messages[0].Payload)
	}
}

func TestFakePublisherError(t *testing.T) {
	fake := NewFakePublisher()
	fake.PublishError = errors.New("broker down")

	if err := fake.Publish(logic.Sample{}, at); err == nil {
		t.Error("expected error")
	}
	if len(fake.Samples) != 0 || len(fake.Messages) != 0 {
		t.Error("failed publish should not be recorded")
	}
}

func TestSinkPublishesSamples(t *testing.T) {
	fake := NewFakePublisher()
	sink := NewSink(fake)

	s := logic.Sample{Elapsed: time.Second, Reading: 500, FanOn: true}
	sink.Emit(logic.Frame{Time: at, Mode: logic.ModeRunning, Sample: &s})
	sink.Emit(logic.Frame{Time: at.Add(time.Second), Mode: logic.ModeRunning})

	if len(fake.Samples) != 1 {
		t.Fatalf("expected 1 sample, got %d", len(fake.Samples))
	}
	if len(fake.SystemEvents) != 0 {
		t.Errorf("expected no system events, got %d", len(fake.SystemEvents))
	}
}

func TestSinkPublishesModeChanges(t *testing.T) {
	fake := NewFakePublisher()
	sink := NewSink(fake)

	sink.Emit(logic.Frame{Time: at, Mode: logic.ModePaused, Toggled: true})

	if len(fake.SystemEvents) != 1 {
		t.Fatalf("expected 1 system event, got %d", len(fake.SystemEvents))
	}
	ev := fake.SystemEvents[0]
	if ev.Event != EventMode || ev.Mode != logic.ModePaused {
		t.Errorf("unexpected event: %+v", ev)
	}
	if ev.Retained {
		t.Error("mode events should not be retained")
	}
}

func TestSinkSwallowsErrors(t *testing.T) {
	fake := NewFakePublisher()
	fake.PublishError = errors.New("broker down")
	fake.PublishSystemError = errors.New("broker down")
	sink := NewSink(fake)

	s := logic.Sample{Reading: 1}
	sink.Emit(logic.Frame{Time: at, Mode: logic.ModeRunning, Toggled: true, Sample: &s})

	if len(fake.Samples) != 0 || len(fake.SystemEvents) != 0 {
		t.Error("nothing should be recorded when publishing fails")
	}
}
