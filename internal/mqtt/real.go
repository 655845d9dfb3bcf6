package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/air-quality/internal/logger"
	"github.com/sweeney/air-quality/internal/logic"
)

// DefaultBufferSize is how many messages are kept while the broker is unreachable.
const DefaultBufferSize = 1000

const (
	clientID       = "air-quality"
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// conn is the part of paho.Client the publisher drives.
type conn interface {
	IsConnectionOpen() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Disconnect(quiesce uint)
}

// RealPublisher publishes to an actual MQTT broker. Messages published while
// disconnected are buffered and replayed, in order, once the connection is
// back; new messages keep queueing behind the backlog until it has drained.
type RealPublisher struct {
	client      conn
	topic       string
	systemTopic string

	mu      sync.Mutex
	backlog *backlog
	live    bool // backlog drained since the last (re)connect
}

func newRealPublisher(client conn, topic string) *RealPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &RealPublisher{
		client:      client,
		topic:       topic,
		systemTopic: SystemTopic(topic),
		backlog:     newBacklog(DefaultBufferSize),
	}
}

// NewRealPublisher creates a publisher for broker. If the first connection
// attempt times out the client keeps retrying in the background and
// messages are buffered until it succeeds.
func NewRealPublisher(broker, topic string) (*RealPublisher, error) {
	p := newRealPublisher(nil, topic)

	will, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: EventOffline})
	if err != nil {
		return nil, fmt.Errorf("format will payload: %w", err)
	}

	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(p.systemTopic, string(will), 1, true).
		SetOnConnectHandler(func(paho.Client) { p.replay() }).
		SetConnectionLostHandler(func(_ paho.Client, err error) { p.connectionLost(err) })

	client := paho.NewClient(opts)
	p.client = client
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		logger.Warn().Str("broker", broker).Msg("mqtt connect pending, buffering messages")
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return p, nil
}

// Publish sends a sample at QoS 0, not retained.
func (p *RealPublisher) Publish(s logic.Sample, at time.Time) error {
	payload, err := FormatPayload(s, at)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return p.send(bufferedMsg{topic: p.topic, payload: payload})
}

// PublishSystem sends a lifecycle event at QoS 1.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	return p.send(bufferedMsg{topic: p.systemTopic, payload: payload, qos: 1, retained: event.Retained})
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.mu.Lock()
	pending := p.backlog.size()
	p.mu.Unlock()
	if pending > 0 {
		logger.Warn().Int("pending", pending).Msg("mqtt closing with unsent messages")
	}
	p.client.Disconnect(1000)
	return nil
}

func (p *RealPublisher) send(msg bufferedMsg) error {
	p.mu.Lock()
	if !p.live || !p.client.IsConnectionOpen() {
		p.backlog.add(msg)
		p.mu.Unlock()
		return nil
	}
	p.mu.Unlock()
	return p.publish(msg)
}

func (p *RealPublisher) connectionLost(err error) {
	p.mu.Lock()
	p.live = false
	p.mu.Unlock()
	logger.Warn().Err(err).Msg("mqtt connection lost")
}

func (p *RealPublisher) publish(msg bufferedMsg) error {
	token := p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", msg.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", msg.topic, err)
	}
	return nil
}

// replay runs on every (re)connect. It drains the backlog, including
// anything queued while it runs, before letting sends go straight out.
func (p *RealPublisher) replay() {
	for {
		p.mu.Lock()
		msgs, dropped := p.backlog.take()
		if len(msgs) == 0 {
			p.live = true
		}
		p.mu.Unlock()

		if dropped > 0 {
			logger.Warn().Int("dropped", dropped).Msg("mqtt backlog overflowed while offline")
		}
		if len(msgs) == 0 {
			return
		}

		logger.Info().Int("messages", len(msgs)).Msg("mqtt connected, replaying backlog")
		for _, msg := range msgs {
			// Publish without waiting: this runs on the client's callback goroutine.
			p.client.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		}
	}
}
