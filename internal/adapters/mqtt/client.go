package mqtt

import (
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bft-labs/shipctl/internal/ports"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second
	maxPayloadSize           = 1 << 20
)

// Config configures the broker connection.
type Config struct {
	// Broker is the broker URL, e.g. tcp://localhost:1883.
	Broker   string
	ClientID string
	Username string
	Password string
	// QoS is used for every publish and subscription.
	QoS byte
	// Topics names the status topic used for the last will.
	Topics Topics
}

// MessageHandler receives messages of a subscription. It runs on a paho
// goroutine.
type MessageHandler func(topic string, payload []byte)

// Publisher publishes payloads to topics.
type Publisher interface {
	Publish(topic string, payload []byte, retained bool) error
}

// Subscriber registers message handlers.
type Subscriber interface {
	Subscribe(topic string, handler MessageHandler) error
}

// Client wraps a paho client. Subscriptions are restored on reconnect.
type Client struct {
	client pahomqtt.Client
	cfg    Config
	logger ports.Logger

	mu            sync.RWMutex
	connected     bool
	subscriptions map[string]MessageHandler
}

var (
	_ Publisher  = (*Client)(nil)
	_ Subscriber = (*Client)(nil)
)

// Connect connects to the broker and publishes a retained online status.
func Connect(cfg Config, logger ports.Logger) (*Client, error) {
	c := &Client{
		cfg:           cfg,
		logger:        logger,
		subscriptions: make(map[string]MessageHandler),
	}

	opts := pahomqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(defaultConnectTimeout)
	opts.SetKeepAlive(defaultKeepAlive)
	opts.SetWill(cfg.Topics.Status(), statusPayload("offline", cfg.ClientID), 1, true)
	opts.SetOnConnectHandler(func(pahomqtt.Client) { c.handleConnect() })
	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.handleDisconnect(err) })

	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(defaultConnectTimeout) {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, defaultConnectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return c, nil
}

func (c *Client) handleConnect() {
	c.mu.Lock()
	c.connected = true
	subs := make(map[string]MessageHandler, len(c.subscriptions))
	for topic, h := range c.subscriptions {
		subs[topic] = h
	}
	c.mu.Unlock()

	for topic, h := range subs {
		c.client.Subscribe(topic, c.cfg.QoS, c.wrap(h))
	}
	c.client.Publish(c.cfg.Topics.Status(), c.cfg.QoS, true, statusPayload("online", c.cfg.ClientID))
	c.logger.Info("mqtt connected", ports.String("broker", c.cfg.Broker))
}

func (c *Client) handleDisconnect(err error) {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.logger.Warn("mqtt connection lost", ports.Err(err))
}

// IsConnected reports the last known connection state.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// Publish implements Publisher.
func (c *Client) Publish(topic string, payload []byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, c.cfg.QoS, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}

// Subscribe implements Subscriber.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler", ErrSubscribeFailed)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Subscribe(topic, c.cfg.QoS, c.wrap(handler))
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	c.mu.Lock()
	c.subscriptions[topic] = handler
	c.mu.Unlock()
	return nil
}

func (c *Client) wrap(h MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("mqtt handler panic",
					ports.String("topic", msg.Topic()),
					ports.Any("panic", r),
				)
			}
		}()
		h(msg.Topic(), msg.Payload())
	}
}

// Close publishes a retained offline status and disconnects.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	if c.IsConnected() {
		token := c.client.Publish(c.cfg.Topics.Status(), c.cfg.QoS, true, statusPayload("offline", c.cfg.ClientID))
		token.WaitTimeout(defaultPublishTimeout)
	}
	c.client.Disconnect(defaultDisconnectQuiesce)

	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	return nil
}

func statusPayload(status, clientID string) string {
	return fmt.Sprintf(`{"status":%q,"client_id":%q,"timestamp":%q}`,
		status, clientID, time.Now().UTC().Format(time.RFC3339))
}
