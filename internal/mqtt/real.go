package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/sweeney/knob-sensor/internal/knob"
)

// Options configures a RealPublisher.
type Options struct {
	Broker     string
	ClientID   string
	BufferSize int // messages kept while disconnected
	Logger     *zap.Logger
}

// DefaultBufferSize is used when Options.BufferSize is 0.
const DefaultBufferSize = 256

var errPublishTimeout = errors.New("publish timeout")

// RealPublisher publishes to an actual MQTT broker. Messages published while
// the connection is down are buffered and replayed on reconnect.
type RealPublisher struct {
	client paho.Client
	topic  string
	log    *zap.Logger

	mu        sync.Mutex
	queue     *offlineQueue
	connected bool // at least one successful connection
}

// NewRealPublisher creates a publisher for the given broker. If the broker is
// not reachable within the connect timeout the publisher is still returned:
// it keeps retrying in the background and buffers until connected.
func NewRealPublisher(o Options) (*RealPublisher, error) {
	if o.Broker == "" {
		return nil, errors.New("mqtt: no broker configured")
	}
	if o.ClientID == "" {
		o.ClientID = "knob-sensor"
	}
	if o.BufferSize == 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}

	p := &RealPublisher{
		topic: Topic,
		log:   o.Logger,
		queue: newOfflineQueue(o.BufferSize, o.Logger),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, string(willPayload(time.Now())), 1, true).
		SetOnConnectHandler(p.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			p.log.Warn("mqtt connection lost", zap.Error(err))
		})

	p.client = paho.NewClient(opts)
	token := p.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		p.log.Warn("mqtt broker not reachable yet, buffering", zap.String("broker", o.Broker))
		return p, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return p, nil
}

// onConnect replays buffered messages. After a reconnect it also announces
// RECONNECTED on the system topic.
func (p *RealPublisher) onConnect(c paho.Client) {
	p.mu.Lock()
	reconnect := p.connected
	p.connected = true
	pending, dropped := p.queue.take()
	p.mu.Unlock()

	p.log.Info("mqtt connected",
		zap.Bool("reconnect", reconnect),
		zap.Int("buffered", len(pending)),
		zap.Uint64("dropped", dropped),
	)

	p.replay(c, pending)

	if reconnect {
		payload, err := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"})
		if err != nil {
			p.log.Warn("mqtt reconnect notice not sent", zap.Error(err))
			return
		}
		c.Publish(TopicSystem, 1, false, payload)
	}
}

// replay publishes queued messages in order. Failures are logged and the
// message is not queued again.
func (p *RealPublisher) replay(c paho.Client, pending []bufferedMsg) {
	for _, msg := range pending {
		token := c.Publish(msg.topic, msg.qos, msg.retained, msg.payload)
		if !token.WaitTimeout(5 * time.Second) {
			p.log.Warn("mqtt replay timeout", zap.String("topic", msg.topic))
			continue
		}
		if err := token.Error(); err != nil {
			p.log.Warn("mqtt replay failed", zap.String("topic", msg.topic), zap.Error(err))
		}
	}
}

// Publish sends a knob event to the MQTT broker.
func (p *RealPublisher) Publish(event knob.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}

	// QoS 0 (at-most-once), not retained
	if err := p.publish(p.topic, 0, false, payload); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (p *RealPublisher) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}

	// QoS 1 (at-least-once) for lifecycle events
	if err := p.publish(TopicSystem, 1, event.Retained, payload); err != nil {
		return fmt.Errorf("publish system: %w", err)
	}
	return nil
}

func (p *RealPublisher) publish(topic string, qos byte, retained bool, payload []byte) error {
	msg := bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained}

	if !p.client.IsConnectionOpen() {
		p.enqueue(msg)
		return nil
	}

	token := p.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(5 * time.Second) {
		p.mu.Lock()
		p.queue.add(msg)
		p.mu.Unlock()
		return errPublishTimeout
	}
	return token.Error()
}

// enqueue stores msg for the next connection. If the connection is open by
// now, onConnect may already have drained the queue, so it is drained here.
func (p *RealPublisher) enqueue(msg bufferedMsg) {
	p.mu.Lock()
	p.queue.add(msg)
	var pending []bufferedMsg
	var dropped uint64
	if p.client.IsConnectionOpen() {
		pending, dropped = p.queue.take()
	}
	p.mu.Unlock()

	if dropped > 0 {
		p.log.Warn("mqtt offline queue overflowed", zap.Uint64("dropped", dropped))
	}

	p.replay(p.client, pending)
}

// Buffered returns the number of messages waiting for a connection.
func (p *RealPublisher) Buffered() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.queue.len()
}

// IsConnected reports whether the client currently has a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnectionOpen()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
