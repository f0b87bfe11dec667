package mqtt

import (
	"sync"
	"sync/atomic"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"notification-rules/config"
	"notification-rules/internal/broker"
	"notification-rules/internal/logger"
	"notification-rules/internal/metrics"
)

// disconnectQuiesce is how long Close waits for in-flight work, in milliseconds
const disconnectQuiesce = 250

var _ broker.Client = (*Client)(nil)

// Client is a broker.Client backed by an MQTT connection
type Client struct {
	cfg     config.MQTTConfig
	client  mqtt.Client
	logger  *logger.Logger
	metrics *metrics.Metrics
	stats   ClientStats

	connected atomic.Bool
	subs      map[string]broker.Handler // Topic handlers, restored on reconnect
	mu        sync.RWMutex
}

// ClientStats tracks MQTT client counters
type ClientStats struct {
	MessagesReceived  uint64
	MessagesPublished uint64
	Errors            uint64
	LastReconnect     time.Time
}

// NewClient connects to the broker named in cfg
func NewClient(cfg config.MQTTConfig, log *logger.Logger, m *metrics.Metrics) (*Client, error) {
	if cfg.ClientID == "" {
		cfg.ClientID = "notification-rules-" + uuid.NewString()
	}

	c := newClient(cfg, log, m)

	opts, err := c.clientOptions()
	if err != nil {
		return nil, err
	}
	c.client = mqtt.NewClient(opts)

	if err := c.connect(); err != nil {
		return nil, err
	}
	return c, nil
}

// NewClientWithPaho wraps an existing paho client, which is assumed connected
func NewClientWithPaho(cfg config.MQTTConfig, client mqtt.Client, log *logger.Logger, m *metrics.Metrics) *Client {
	c := newClient(cfg, log, m)
	c.client = client
	c.connected.Store(true)
	return c
}

func newClient(cfg config.MQTTConfig, log *logger.Logger, m *metrics.Metrics) *Client {
	return &Client{
		cfg:     cfg,
		logger:  log.With("broker", "mqtt", "clientId", cfg.ClientID),
		metrics: m,
		subs:    make(map[string]broker.Handler),
		stats: ClientStats{
			LastReconnect: time.Now(),
		},
	}
}

// IsConnected returns current connection status
func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Close disconnects from the broker
func (c *Client) Close() error {
	c.logger.Info("disconnecting from mqtt broker")
	c.client.Disconnect(disconnectQuiesce)
	c.connected.Store(false)
	c.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(false)
	})
	return nil
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

// safeMetricsUpdate safely updates metrics if they are enabled
func (c *Client) safeMetricsUpdate(fn func(*metrics.Metrics)) {
	if c.metrics != nil {
		fn(c.metrics)
	}
}
