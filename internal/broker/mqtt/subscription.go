package mqtt

import (
	"fmt"
	"sync/atomic"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"notification-rules/internal/broker"
)

// Subscribe registers handler for topic. The subscription is restored
// whenever the connection comes back.
func (c *Client) Subscribe(topic string, handler broker.Handler) error {
	if !c.IsConnected() {
		return broker.ErrNotConnected
	}

	if err := c.subscribe(topic, handler); err != nil {
		return err
	}

	c.mu.Lock()
	c.subs[topic] = handler
	c.mu.Unlock()

	return nil
}

func (c *Client) subscribe(topic string, handler broker.Handler) error {
	callback := func(_ mqtt.Client, msg mqtt.Message) {
		c.handleMessage(msg, handler)
	}

	if token := c.client.Subscribe(topic, c.cfg.QoS, callback); token.Wait() && token.Error() != nil {
		c.logger.Error("failed to subscribe to topic",
			"topic", topic,
			"error", token.Error())
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	c.logger.Info("subscribed to topic", "topic", topic, "qos", c.cfg.QoS)
	return nil
}

// handleMessage passes a received message to its handler
func (c *Client) handleMessage(msg mqtt.Message, handler broker.Handler) {
	atomic.AddUint64(&c.stats.MessagesReceived, 1)

	c.logger.Debug("received message",
		"topic", msg.Topic(),
		"payloadSize", len(msg.Payload()))

	handler(msg.Topic(), msg.Payload())
}

// resubscribeAll restores every registered subscription
func (c *Client) resubscribeAll() error {
	c.mu.RLock()
	subs := make(map[string]broker.Handler, len(c.subs))
	for topic, handler := range c.subs {
		subs[topic] = handler
	}
	c.mu.RUnlock()

	for topic, handler := range subs {
		if err := c.subscribe(topic, handler); err != nil {
			return err
		}
	}
	return nil
}

// GetSubscribedTopics returns the topics with a registered handler
func (c *Client) GetSubscribedTopics() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	topics := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		topics = append(topics, topic)
	}
	return topics
}
