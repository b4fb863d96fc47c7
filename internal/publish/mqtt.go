package publish

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/sirupsen/logrus"
)

// ClientOptions configures the MQTT connection.
// QoS 1 gives at-least-once and QoS 2 exactly-once delivery of readings.
type ClientOptions struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	KeepAlive      time.Duration
	ConnectTimeout time.Duration
	QoS            byte
	Retain         bool
}

// Client wraps a paho client for publishing readings and subscribing to
// advertisement feeds. Subscriptions are recorded so they can be restored
// after a reconnect; the session is clean, so the broker forgets them.
type Client struct {
	inner paho.Client
	opts  ClientOptions
	log   *logrus.Entry

	mu   sync.Mutex
	subs map[string]paho.MessageHandler
}

// NewClient connects to the broker.
func NewClient(opts ClientOptions, log *logrus.Entry) (*Client, error) {
	if opts.ConnectTimeout <= 0 {
		opts.ConnectTimeout = 10 * time.Second
	}
	c := &Client{opts: opts, log: log, subs: make(map[string]paho.MessageHandler)}
	p := paho.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetKeepAlive(opts.KeepAlive).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			log.WithError(err).Warn("mqtt connection lost")
		}).
		SetOnConnectHandler(c.onConnect)
	if opts.Username != "" {
		p.SetUsername(opts.Username)
	}
	if opts.Password != "" {
		p.SetPassword(opts.Password)
	}
	c.inner = paho.NewClient(p)
	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// connect waits for the first connection. On failure the client is shut
// down so the retry loop does not outlive the caller.
func (c *Client) connect() error {
	tok := c.inner.Connect()
	if !tok.WaitTimeout(c.opts.ConnectTimeout) {
		c.inner.Disconnect(0)
		return fmt.Errorf("mqtt connect timeout after %s", c.opts.ConnectTimeout)
	}
	if err := tok.Error(); err != nil {
		c.inner.Disconnect(0)
		return fmt.Errorf("mqtt connect %s: %w", c.opts.Broker, err)
	}
	return nil
}

// onConnect runs after every successful (re)connect and restores the
// recorded subscriptions.
func (c *Client) onConnect(client paho.Client) {
	c.log.WithField("broker", c.opts.Broker).Info("mqtt connected")
	c.mu.Lock()
	subs := make(map[string]paho.MessageHandler, len(c.subs))
	for topic, h := range c.subs {
		subs[topic] = h
	}
	c.mu.Unlock()
	for topic, h := range subs {
		tok := client.Subscribe(topic, c.opts.QoS, h)
		if !tok.WaitTimeout(c.opts.ConnectTimeout) {
			c.log.WithField("topic", topic).Error("mqtt resubscribe timed out")
			continue
		}
		if err := tok.Error(); err != nil {
			c.log.WithError(err).WithField("topic", topic).Error("mqtt resubscribe")
			continue
		}
		c.log.WithField("topic", topic).Debug("mqtt resubscribed")
	}
}

// Publish sends payload with the configured QoS and retain flag.
func (c *Client) Publish(topic string, payload []byte) error {
	tok := c.inner.Publish(topic, c.opts.QoS, c.opts.Retain, payload)
	if !tok.WaitTimeout(c.opts.ConnectTimeout) {
		return fmt.Errorf("mqtt publish to %s timed out", topic)
	}
	if err := tok.Error(); err != nil {
		return fmt.Errorf("mqtt publish to %s: %w", topic, err)
	}
	return nil
}

// Subscribe delivers raw message payloads on topic to handler, including
// after reconnects.
func (c *Client) Subscribe(topic string, handler func([]byte)) error {
	h := func(_ paho.Client, m paho.Message) {
		handler(m.Payload())
	}
	c.mu.Lock()
	c.subs[topic] = h
	c.mu.Unlock()
	tok := c.inner.Subscribe(topic, c.opts.QoS, h)
	tok.Wait()
	if err := tok.Error(); err != nil {
		c.forget(topic)
		return fmt.Errorf("mqtt subscribe %s: %w", topic, err)
	}
	return nil
}

// Unsubscribe stops deliveries for topic.
func (c *Client) Unsubscribe(topic string) error {
	c.forget(topic)
	tok := c.inner.Unsubscribe(topic)
	tok.Wait()
	return tok.Error()
}

func (c *Client) forget(topic string) {
	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()
}

// Close disconnects, allowing in-flight work 250ms to finish.
func (c *Client) Close() {
	c.inner.Disconnect(250)
}
