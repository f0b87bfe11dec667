package mqtt

import (
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"notification-rules/internal/broker"
	"notification-rules/internal/metrics"
)

// clientOptions builds the paho options for c.cfg
func (c *Client) clientOptions() (*mqtt.ClientOptions, error) {
	opts := mqtt.NewClientOptions().
		AddBroker(c.cfg.Broker).
		SetClientID(c.cfg.ClientID).
		SetUsername(c.cfg.Username).
		SetPassword(c.cfg.Password).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetMaxReconnectInterval(time.Minute)

	opts.OnConnect = c.handleConnect
	opts.OnConnectionLost = c.handleDisconnect
	opts.OnReconnecting = c.handleReconnecting

	if c.cfg.TLS.Enable {
		tlsConfig, err := broker.NewTLSConfig(c.cfg.TLS)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
		opts.SetTLSConfig(tlsConfig)
	}

	return opts, nil
}

// connect establishes the initial connection
func (c *Client) connect() error {
	c.logger.Info("connecting to mqtt broker", "url", c.cfg.Broker)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to broker: %w", token.Error())
	}

	// paho runs OnConnect on its own goroutine, possibly after Connect returns
	c.connected.Store(true)
	c.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(true)
	})
	return nil
}

// handleConnect marks the client connected and restores subscriptions
func (c *Client) handleConnect(_ mqtt.Client) {
	c.logger.Info("mqtt client connected", "url", c.cfg.Broker)
	c.connected.Store(true)

	c.mu.Lock()
	c.stats.LastReconnect = time.Now()
	c.mu.Unlock()

	c.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(true)
	})

	if err := c.resubscribeAll(); err != nil {
		c.logger.Error("failed to resubscribe to topics after reconnect",
			"error", err)
		c.safeMetricsUpdate(func(m *metrics.Metrics) {
			m.IncBrokerReconnects()
		})
	}
}

// handleDisconnect processes connection loss
func (c *Client) handleDisconnect(_ mqtt.Client, err error) {
	c.logger.Error("mqtt connection lost", "error", err)
	c.connected.Store(false)

	c.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.SetBrokerConnectionStatus(false)
	})
}

// handleReconnecting processes reconnection attempts
func (c *Client) handleReconnecting(_ mqtt.Client, opts *mqtt.ClientOptions) {
	c.mu.RLock()
	since := time.Since(c.stats.LastReconnect)
	c.mu.RUnlock()

	c.logger.Info("mqtt client reconnecting",
		"servers", len(opts.Servers),
		"sinceLastConnect", since)

	c.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.IncBrokerReconnects()
	})
}
