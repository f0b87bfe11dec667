package nats

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nats-io/nats.go"

	"notification-rules/config"
	"notification-rules/internal/broker"
	"notification-rules/internal/logger"
	"notification-rules/internal/metrics"
)

var _ broker.Client = (*Client)(nil)

// natsConn is the subset of *nats.Conn the client uses
type natsConn interface {
	Publish(subj string, data []byte) error
	Subscribe(subj string, cb nats.MsgHandler) (*nats.Subscription, error)
	IsConnected() bool
	ConnectedUrl() string
	Close()
}

// Client is a broker.Client backed by a NATS connection. Topics are given
// in MQTT form and mapped to NATS subjects.
type Client struct {
	cfg     config.NATSConfig
	conn    natsConn
	logger  *logger.Logger
	metrics *metrics.Metrics
	stats   ClientStats

	subs map[string]*nats.Subscription
	mu   sync.RWMutex
}

// ClientStats tracks NATS client counters
type ClientStats struct {
	MessagesReceived  uint64
	MessagesPublished uint64
	Errors            uint64
	LastReconnect     time.Time
}

// NewClient connects to the servers named in cfg
func NewClient(cfg config.NATSConfig, log *logger.Logger, m *metrics.Metrics) (*Client, error) {
	if len(cfg.URLs) == 0 {
		return nil, fmt.Errorf("no NATS server URLs provided")
	}

	c := newClient(cfg, log, m)

	c.logger.Info("connecting to NATS server", "urls", cfg.URLs)

	conn, err := nats.Connect(strings.Join(cfg.URLs, ","), c.options()...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS server: %w", err)
	}
	c.conn = conn

	c.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(true)
	})
	c.logger.Info("connected to NATS server", "url", conn.ConnectedUrl())

	return c, nil
}

func newClient(cfg config.NATSConfig, log *logger.Logger, m *metrics.Metrics) *Client {
	return &Client{
		cfg:     cfg,
		logger:  log.With("broker", "nats"),
		metrics: m,
		subs:    make(map[string]*nats.Subscription),
		stats: ClientStats{
			LastReconnect: time.Now(),
		},
	}
}

// options builds the connection options for c.cfg
func (c *Client) options() []nats.Option {
	name := c.cfg.ClientID
	if name == "" {
		name = "notification-rules"
	}

	opts := []nats.Option{
		nats.Name(name),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(c.handleDisconnect),
		nats.ReconnectHandler(c.handleReconnect),
		nats.ClosedHandler(c.handleClosed),
	}

	if c.cfg.Username != "" {
		opts = append(opts, nats.UserInfo(c.cfg.Username, c.cfg.Password))
	}

	if c.cfg.TLS.Enable {
		opts = append(opts, nats.ClientCert(c.cfg.TLS.CertFile, c.cfg.TLS.KeyFile))
		if c.cfg.TLS.CAFile != "" {
			opts = append(opts, nats.RootCAs(c.cfg.TLS.CAFile))
		}
	}

	return opts
}

// Subscribe registers handler for the subject matching topic. NATS keeps
// subscriptions across reconnects.
func (c *Client) Subscribe(topic string, handler broker.Handler) error {
	if !c.IsConnected() {
		return broker.ErrNotConnected
	}

	subject := ToNATSSubject(topic)
	sub, err := c.conn.Subscribe(subject, func(msg *nats.Msg) {
		c.handleMessage(msg, handler)
	})
	if err != nil {
		c.logger.Error("failed to subscribe to topic",
			"topic", topic,
			"subject", subject,
			"error", err)
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, err)
	}

	c.mu.Lock()
	c.subs[topic] = sub
	c.mu.Unlock()

	c.logger.Info("subscribed to topic", "topic", topic, "subject", subject)
	return nil
}

// handleMessage passes a received message to handler with its MQTT-form topic
func (c *Client) handleMessage(msg *nats.Msg, handler broker.Handler) {
	atomic.AddUint64(&c.stats.MessagesReceived, 1)

	c.logger.Debug("received message",
		"subject", msg.Subject,
		"payloadSize", len(msg.Data))

	handler(ToMQTTTopic(msg.Subject), msg.Data)
}

// Publish sends payload to the subject matching topic
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.IsConnected() {
		return broker.ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := broker.ValidateTopicName(topic); err != nil {
		return err
	}

	subject := NormalizeSubject(ToNATSSubject(topic))

	if err := c.conn.Publish(subject, payload); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		c.logger.Error("failed to publish message",
			"error", err,
			"topic", topic,
			"subject", subject)
		return err
	}

	atomic.AddUint64(&c.stats.MessagesPublished, 1)
	c.logger.Debug("published message",
		"topic", topic,
		"subject", subject,
		"payloadSize", len(payload))

	return nil
}

// IsConnected returns the current connection status
func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close closes the connection, dropping all subscriptions
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}

	c.logger.Info("disconnecting from NATS server")
	c.conn.Close()

	c.mu.Lock()
	c.subs = make(map[string]*nats.Subscription)
	c.mu.Unlock()

	return nil
}

// GetSubscribedTopics returns the topics with an active subscription
func (c *Client) GetSubscribedTopics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	return topics
}

// GetStats returns current client statistics
func (c *Client) GetStats() ClientStats {
	c.mu.RLock()
	lastReconnect := c.stats.LastReconnect
	c.mu.RUnlock()

	return ClientStats{
		MessagesReceived:  atomic.LoadUint64(&c.stats.MessagesReceived),
		MessagesPublished: atomic.LoadUint64(&c.stats.MessagesPublished),
		Errors:            atomic.LoadUint64(&c.stats.Errors),
		LastReconnect:     lastReconnect,
	}
}

// NATS connection event handlers

func (c *Client) handleDisconnect(_ *nats.Conn, err error) {
	c.logger.Error("disconnected from NATS server", "error", err)

	c.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(false)
	})
}

func (c *Client) handleReconnect(conn *nats.Conn) {
	c.logger.Info("reconnected to NATS server", "url", conn.ConnectedUrl())

	c.mu.Lock()
	c.stats.LastReconnect = time.Now()
	c.mu.Unlock()

	c.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(true)
		m.IncBrokerReconnects()
	})
}

func (c *Client) handleClosed(_ *nats.Conn) {
	c.logger.Warn("NATS connection closed")

	c.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(false)
	})
}

// safeMetricsUpdate safely updates metrics if they are enabled
func (c *Client) safeMetricsUpdate(fn func(*metrics.Metrics)) {
	if c.metrics != nil {
		fn(c.metrics)
	}
}
