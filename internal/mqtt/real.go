package mqtt

import (
	"fmt"
	"log"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/sweeney/dimmer/internal/logic"
)

// Defaults for Options.
const (
	DefaultClientID   = "iotdimmer"
	DefaultBufferSize = 256
	connectTimeout    = 10 * time.Second
	publishTimeout    = 5 * time.Second
)

// Options configures a RealClient.
type Options struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topics   Topics
	// QoS and Retain apply to status values and dimmer events.
	QoS    byte
	Retain bool
	// BufferSize bounds the messages held while disconnected.
	BufferSize int
}

// RealClient talks to an actual MQTT broker. Messages published while the
// connection is down are buffered and sent after reconnecting.
type RealClient struct {
	client paho.Client
	topics Topics
	qos    byte
	retain bool

	mu        sync.Mutex
	buf       *ringBuffer
	handler   CommandHandler
	connected bool // at least one connection was made
}

// NewRealClient connects to the broker. If the broker is unreachable the
// client keeps retrying in the background and buffers until connected.
func NewRealClient(o Options) (*RealClient, error) {
	if o.ClientID == "" {
		o.ClientID = DefaultClientID
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}
	if o.Topics.Main == "" {
		o.Topics = NewTopics("")
	}
	if o.QoS > 2 {
		o.QoS = 2
	}

	c := &RealClient{
		topics: o.Topics,
		qos:    o.QoS,
		retain: o.Retain,
		buf:    newRingBuffer(o.BufferSize),
	}

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetCleanSession(true).
		SetOrderMatters(false).
		SetKeepAlive(30*time.Second).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(o.Topics.Topic(TagSystem), string(WillPayload()), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.Printf("mqtt: connection lost: %v", err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		log.Printf("mqtt: broker %s not reachable yet, retrying in background", o.Broker)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}
	return c, nil
}

func (c *RealClient) onConnect(_ paho.Client) {
	c.mu.Lock()
	reconnect := c.connected
	c.connected = true
	h := c.handler
	pending := c.buf.drainAll()
	c.mu.Unlock()

	log.Printf("mqtt: connected")
	if h != nil {
		if err := c.subscribe(h); err != nil {
			log.Printf("mqtt: resubscribe: %v", err)
		}
	}
	for i, m := range pending {
		if err := c.send(m); err != nil {
			log.Printf("mqtt: replay: %v", err)
			c.mu.Lock()
			for _, rest := range pending[i:] {
				c.buf.push(rest)
			}
			c.mu.Unlock()
			return
		}
	}
	if len(pending) > 0 {
		log.Printf("mqtt: replayed %d buffered messages", len(pending))
	}
	if reconnect {
		if err := c.PublishSystem(SystemEvent{Timestamp: time.Now(), Event: "RECONNECTED"}); err != nil {
			log.Printf("mqtt: publish reconnected: %v", err)
		}
	}
}

// Subscribe installs h for every command tag. The subscription is renewed
// on each reconnect.
func (c *RealClient) Subscribe(h CommandHandler) error {
	c.mu.Lock()
	c.handler = h
	c.mu.Unlock()
	if !c.client.IsConnectionOpen() {
		return nil
	}
	return c.subscribe(h)
}

func (c *RealClient) subscribe(h CommandHandler) error {
	filters := make(map[string]byte, len(CommandTags))
	for _, tag := range CommandTags {
		filters[c.topics.Topic(tag)] = c.qos
	}
	token := c.client.SubscribeMultiple(filters, func(_ paho.Client, msg paho.Message) {
		tag, ok := c.topics.Tag(msg.Topic())
		if !ok {
			return
		}
		h(Command{Tag: tag, Payload: string(msg.Payload())})
	})
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("subscribe timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}
	return nil
}

// PublishValue sends a status value. Only the newest value per tag is kept
// while disconnected.
func (c *RealClient) PublishValue(tag, value string) error {
	return c.publish(bufferedMsg{
		topic:    c.topics.Topic(tag),
		payload:  []byte(value),
		qos:      c.qos,
		retained: c.retain,
		latest:   true,
	})
}

// Publish sends a dimmer event.
func (c *RealClient) Publish(event logic.Event) error {
	payload, err := FormatPayload(event)
	if err != nil {
		return fmt.Errorf("format payload: %w", err)
	}
	return c.publish(bufferedMsg{
		topic:   c.topics.Topic(TagEvent),
		payload: payload,
		qos:     c.qos,
	})
}

// PublishSystem sends a system lifecycle event.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return c.publish(bufferedMsg{
		topic:    c.topics.Topic(TagSystem),
		payload:  payload,
		qos:      1,
		retained: event.Retained,
	})
}

func (c *RealClient) publish(m bufferedMsg) error {
	if !c.client.IsConnectionOpen() {
		c.mu.Lock()
		c.buf.push(m)
		c.mu.Unlock()
		return nil
	}
	if err := c.send(m); err != nil {
		c.mu.Lock()
		c.buf.push(m)
		c.mu.Unlock()
		return err
	}
	return nil
}

func (c *RealClient) send(m bufferedMsg) error {
	token := c.client.Publish(m.topic, m.qos, m.retained, m.payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", m.topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", m.topic, err)
	}
	return nil
}

// IsConnected reports whether the broker connection is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// Buffered returns the number of messages waiting for a connection.
func (c *RealClient) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.len()
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
