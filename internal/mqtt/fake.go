package mqtt

import (
	"time"

	"github.com/sweeney/air-quality/internal/logic"
)

// FakeMessage is one message the fake would have put on the wire.
type FakeMessage struct {
	Topic   string
	Payload []byte
}

// FakePublisher records what it is asked to publish.
// Samples and SystemEvents hold the decoded values; Messages holds the
// encoded form in publish order, across both topics.
type FakePublisher struct {
	Topic string

	Samples      []logic.Sample
	SystemEvents []SystemEvent
	Messages     []FakeMessage

	// PublishError and PublishSystemError fail the matching call when set.
	PublishError       error
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher returns a fake publishing to DefaultTopic.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Topic: DefaultTopic}
}

func (f *FakePublisher) Publish(s logic.Sample, at time.Time) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(s, at)
	if err != nil {
		return err
	}
	f.Samples = append(f.Samples, s)
	f.Messages = append(f.Messages, FakeMessage{Topic: f.Topic, Payload: payload})
	return nil
}

func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Messages = append(f.Messages, FakeMessage{Topic: SystemTopic(f.Topic), Payload: payload})
	return nil
}

func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}
