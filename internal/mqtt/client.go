// Package mqtt maintains the broker connection for the bridge. It uses
// Eclipse Paho v2's [autopaho] package for connection management with
// automatic reconnection. On every (re-)connect it re-subscribes all
// registered command topics, publishes a birth message ("online") to the
// availability topic, and invokes the registered OnConnect callback. The
// bridge wires that to Device.Configure so discovery configs and retained
// state are republished after broker restarts. A will message ensures the
// availability topic transitions to "offline" on unexpected disconnects.
//
// Inbound messages are dispatched synchronously, one at a time, to the
// handler registered for their exact topic. Handler errors are logged and
// absorbed; they terminate only that message's handling.
package mqtt

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/eclipse/paho.golang/autopaho"
	"github.com/eclipse/paho.golang/paho"

	"github.com/catsltd/habridge/internal/config"
	"github.com/catsltd/habridge/internal/entity"
)

// connection is the subset of [autopaho.ConnectionManager] the client uses.
type connection interface {
	Publish(ctx context.Context, p *paho.Publish) (*paho.PublishResponse, error)
	Subscribe(ctx context.Context, s *paho.Subscribe) (*paho.Suback, error)
	Disconnect(ctx context.Context) error
	AwaitConnection(ctx context.Context) error
}

// Client manages the MQTT connection and implements [entity.Broker].
type Client struct {
	cfg    config.MQTTConfig
	logger *slog.Logger

	mu        sync.Mutex
	cm        connection
	handlers  map[string]entity.Handler
	onConnect func(ctx context.Context)
}

// NewClient creates a Client but does not connect. Call [Client.Start] to
// begin the connection.
func NewClient(cfg config.MQTTConfig, logger *slog.Logger) *Client {
	return &Client{
		cfg:      cfg,
		logger:   logger,
		handlers: make(map[string]entity.Handler),
	}
}

// OnConnect registers fn to run on every successful (re-)connection, after
// the command topic subscriptions have been re-established. Must be called
// before Start.
func (c *Client) OnConnect(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onConnect = fn
}

// conn returns the current connection, or nil before the client has started.
func (c *Client) conn() connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cm
}

// Start connects to the broker and waits (bounded) for the initial
// connection. The connection then lives until ctx is cancelled; autopaho
// retries in the background across broker outages.
func (c *Client) Start(ctx context.Context) error {
	brokerURL, err := url.Parse(c.cfg.Broker)
	if err != nil {
		return fmt.Errorf("parse mqtt broker URL: %w", err)
	}

	pahoCfg := autopaho.ClientConfig{
		ServerUrls:      []*url.URL{brokerURL},
		KeepAlive:       30,
		ConnectUsername: c.cfg.Username,
		ConnectPassword: []byte(c.cfg.Password),
		WillMessage: &paho.WillMessage{
			Topic:   c.cfg.AvailabilityTopic,
			Payload: []byte("offline"),
			QoS:     1,
			Retain:  true,
		},
		OnConnectionUp: func(cm *autopaho.ConnectionManager, _ *paho.Connack) {
			c.logger.Info("mqtt connected to broker", "broker", c.cfg.Broker)
			c.connectionUp(ctx, cm)
		},
		OnConnectError: func(err error) {
			c.logger.Warn("mqtt connection error", "error", err)
		},
		ClientConfig: paho.ClientConfig{
			ClientID: c.cfg.ClientID,
			OnPublishReceived: []func(paho.PublishReceived) (bool, error){
				func(pr paho.PublishReceived) (bool, error) {
					c.dispatch(ctx, pr.Packet.Topic, pr.Packet.Payload)
					return true, nil
				},
			},
		},
	}

	// Enable TLS for mqtts:// or ssl:// schemes.
	if brokerURL.Scheme == "mqtts" || brokerURL.Scheme == "ssl" {
		pahoCfg.TlsCfg = &tls.Config{
			MinVersion: tls.VersionTLS12,
		}
	}

	cm, err := autopaho.NewConnection(ctx, pahoCfg)
	if err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	// OnConnectionUp fires on autopaho's goroutine and may have stored the
	// connection already; either way the value is the same manager.
	c.mu.Lock()
	c.cm = cm
	c.mu.Unlock()

	connCtx, connCancel := context.WithTimeout(ctx, 30*time.Second)
	defer connCancel()
	if err := cm.AwaitConnection(connCtx); err != nil {
		// Log but don't fail; autopaho keeps retrying in the background.
		c.logger.Warn("mqtt initial connection timed out, will retry in background", "error", err)
	}

	return nil
}

// Stop gracefully disconnects by publishing an "offline" availability
// message before closing the MQTT connection. The provided context controls
// how long to wait for the publish and disconnect to complete.
func (c *Client) Stop(ctx context.Context) error {
	cm := c.conn()
	if cm == nil {
		return nil
	}
	c.publishAvailability(ctx, cm, "offline")
	return cm.Disconnect(ctx)
}

// AwaitConnection blocks until the broker connection is established or ctx
// expires.
func (c *Client) AwaitConnection(ctx context.Context) error {
	cm := c.conn()
	if cm == nil {
		return fmt.Errorf("mqtt client not started")
	}
	return cm.AwaitConnection(ctx)
}

// Publish sends payload to topic at QoS 1. Retained publishes carry the
// entity state and discovery configs so the broker redelivers them to new
// subscribers.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, retain bool) error {
	cm := c.conn()
	if cm == nil {
		return fmt.Errorf("mqtt client not started")
	}
	c.logger.Log(ctx, config.LevelTrace, "mqtt publish",
		"topic", topic, "payload", string(payload), "retain", retain)

	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   topic,
		Payload: payload,
		QoS:     1,
		Retain:  retain,
	}); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Subscribe registers exactly one handler for topic and subscribes at the
// broker. Registering again for the same topic replaces the handler, so a
// re-run of the configure phase never double-dispatches.
func (c *Client) Subscribe(ctx context.Context, topic string, h entity.Handler) error {
	c.mu.Lock()
	c.handlers[topic] = h
	cm := c.cm
	c.mu.Unlock()

	if cm == nil {
		// Not started yet; the subscription is sent on connection-up.
		return nil
	}
	return c.subscribe(ctx, cm, topic)
}

func (c *Client) subscribe(ctx context.Context, cm connection, topic string) error {
	if _, err := cm.Subscribe(ctx, &paho.Subscribe{
		Subscriptions: []paho.SubscribeOptions{{Topic: topic, QoS: 1}},
	}); err != nil {
		return fmt.Errorf("subscribe %s: %w", topic, err)
	}
	return nil
}

// connectionUp re-establishes broker state after every (re-)connect. The
// connection is stored first so the OnConnect callback (and anything it
// triggers, like entity publishes during Device.Configure) sees a live
// client even when this fires before Start's own assignment. Then
// subscriptions are restored so no command is missed, then the birth
// message, then the OnConnect callback.
func (c *Client) connectionUp(ctx context.Context, cm connection) {
	c.mu.Lock()
	c.cm = cm
	topics := make([]string, 0, len(c.handlers))
	for t := range c.handlers {
		topics = append(topics, t)
	}
	onConnect := c.onConnect
	c.mu.Unlock()

	for _, t := range topics {
		if err := c.subscribe(ctx, cm, t); err != nil {
			c.logger.Warn("mqtt resubscribe failed", "topic", t, "error", err)
		}
	}

	c.publishAvailability(ctx, cm, "online")

	if onConnect != nil {
		onConnect(ctx)
	}
}

func (c *Client) publishAvailability(ctx context.Context, cm connection, status string) {
	if c.cfg.AvailabilityTopic == "" {
		return
	}
	if _, err := cm.Publish(ctx, &paho.Publish{
		Topic:   c.cfg.AvailabilityTopic,
		Payload: []byte(status),
		QoS:     1,
		Retain:  true,
	}); err != nil {
		c.logger.Warn("mqtt availability publish failed",
			"status", status, "error", err)
	} else {
		c.logger.Info("mqtt availability published", "status", status)
	}
}

// dispatch routes an inbound message to the handler registered for its
// exact topic. Messages on unregistered topics are dropped with a debug
// log. Handler errors terminate only that invocation.
func (c *Client) dispatch(ctx context.Context, topic string, payload []byte) {
	c.mu.Lock()
	h, ok := c.handlers[topic]
	c.mu.Unlock()

	if !ok {
		c.logger.Debug("mqtt message on unhandled topic", "topic", topic)
		return
	}

	c.logger.Log(ctx, config.LevelTrace, "mqtt message received",
		"topic", topic, "payload", string(payload))

	if err := h(ctx, topic, payload); err != nil {
		c.logger.Error("mqtt command handling failed",
			"topic", topic, "error", err)
	}
}
