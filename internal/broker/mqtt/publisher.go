package mqtt

import (
	"context"
	"fmt"
	"sync/atomic"

	"notification-rules/internal/broker"
)

// Publish sends payload to topic and waits for the broker to acknowledge
// it according to the configured QoS, or for ctx to end
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	if !c.IsConnected() {
		return broker.ErrNotConnected
	}
	if err := broker.ValidateTopicName(topic); err != nil {
		return err
	}

	token := c.client.Publish(topic, c.cfg.QoS, false, payload)

	select {
	case <-token.Done():
	case <-ctx.Done():
		atomic.AddUint64(&c.stats.Errors, 1)
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}

	if err := token.Error(); err != nil {
		atomic.AddUint64(&c.stats.Errors, 1)
		c.logger.Error("failed to publish message",
			"error", err,
			"topic", topic)
		return err
	}

	atomic.AddUint64(&c.stats.MessagesPublished, 1)
	c.logger.Debug("published message",
		"topic", topic,
		"payloadSize", len(payload))

	return nil
}
