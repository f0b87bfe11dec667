// File: internal/broker/broker.go
package broker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"notification-rules/internal/logger"
	"notification-rules/internal/metrics"
	"notification-rules/internal/notification"
)

// ErrNotConnected is returned when the broker connection is down
var ErrNotConnected = errors.New("not connected to broker")

// Handler receives the raw payload of one broker message
type Handler func(topic string, payload []byte)

// Client is a broker connection able to subscribe and publish.
// Implementations live in the mqtt and nats subpackages.
type Client interface {
	Subscribe(topic string, handler Handler) error
	Publish(ctx context.Context, topic string, payload []byte) error
	IsConnected() bool
	Close() error
}

// Poster accepts decoded notifications
type Poster interface {
	Post(ctx context.Context, n notification.Notification) error
}

// Bridge feeds notifications received from a broker topic into a Poster.
// Broker callbacks only decode and enqueue; a single worker posts in
// arrival order.
type Bridge struct {
	client  Client
	poster  Poster
	logger  *logger.Logger
	metrics *metrics.Metrics
	stats   BridgeStats
	ctx     context.Context

	pending []notification.Notification
	wake    chan struct{}
	done    chan struct{}
	mu      sync.Mutex
}

// BridgeStats tracks bridge message counts
type BridgeStats struct {
	MessagesReceived uint64
	MessagesPosted   uint64
	DecodeErrors     uint64
	PostErrors       uint64
}

// NewBridge creates a bridge between client and poster
func NewBridge(client Client, poster Poster, log *logger.Logger, m *metrics.Metrics) *Bridge {
	return &Bridge{
		client:  client,
		poster:  poster,
		logger:  log,
		metrics: m,
		ctx:     context.Background(),
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
}

// Start subscribes to topic. Messages are posted with ctx until it is done.
// Start must be called at most once.
func (b *Bridge) Start(ctx context.Context, topic string) error {
	if err := ValidateTopicFilter(topic); err != nil {
		return err
	}

	b.mu.Lock()
	b.ctx = ctx
	b.mu.Unlock()

	if err := b.client.Subscribe(topic, b.handleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	go b.run(ctx)

	b.logger.Info("bridge started", "topic", topic)
	return nil
}

// Wait blocks until the worker of a successful Start has exited
func (b *Bridge) Wait() {
	<-b.done
}

// run posts queued notifications until ctx is done. Notifications still
// queued at that point are dropped.
func (b *Bridge) run(ctx context.Context) {
	defer close(b.done)

	for {
		select {
		case <-ctx.Done():
			b.mu.Lock()
			dropped := len(b.pending)
			b.pending = nil
			b.mu.Unlock()
			if dropped > 0 {
				b.logger.Info("dropped queued notifications on shutdown", "count", dropped)
			}
			return
		case <-b.wake:
		}

		for {
			b.mu.Lock()
			if len(b.pending) == 0 || ctx.Err() != nil {
				b.mu.Unlock()
				break
			}
			n := b.pending[0]
			b.pending[0] = notification.Notification{}
			b.pending = b.pending[1:]
			b.mu.Unlock()

			b.post(ctx, n)
		}
	}
}

func (b *Bridge) enqueue(n notification.Notification) {
	b.mu.Lock()
	b.pending = append(b.pending, n)
	b.mu.Unlock()

	select {
	case b.wake <- struct{}{}:
	default:
	}
}

// handleMessage decodes one payload and queues it for posting. Decode
// failures are logged and counted; the message is dropped.
func (b *Bridge) handleMessage(topic string, payload []byte) {
	atomic.AddUint64(&b.stats.MessagesReceived, 1)
	b.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.IncBrokerMessages("received")
	})

	b.mu.Lock()
	ctx := b.ctx
	b.mu.Unlock()

	if ctx.Err() != nil {
		b.logger.Debug("dropping message after shutdown", "topic", topic)
		return
	}

	n, err := notification.Decode(payload)
	if err != nil {
		atomic.AddUint64(&b.stats.DecodeErrors, 1)
		b.safeMetricsUpdate(func(m *metrics.Metrics) {
			m.IncBrokerMessages("invalid")
		})
		b.logger.Error("failed to decode notification",
			"topic", topic,
			"payloadSize", len(payload),
			"error", err)
		return
	}

	b.enqueue(n)
}

func (b *Bridge) post(ctx context.Context, n notification.Notification) {
	if err := b.poster.Post(ctx, n); err != nil {
		atomic.AddUint64(&b.stats.PostErrors, 1)
		b.safeMetricsUpdate(func(m *metrics.Metrics) {
			m.IncBrokerMessages("error")
		})
		b.logger.Error("notification posted with errors",
			"notification", n.ID,
			"error", err)
		return
	}

	atomic.AddUint64(&b.stats.MessagesPosted, 1)
	b.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.IncBrokerMessages("posted")
	})
}

// GetStats returns current bridge statistics
func (b *Bridge) GetStats() BridgeStats {
	return BridgeStats{
		MessagesReceived: atomic.LoadUint64(&b.stats.MessagesReceived),
		MessagesPosted:   atomic.LoadUint64(&b.stats.MessagesPosted),
		DecodeErrors:     atomic.LoadUint64(&b.stats.DecodeErrors),
		PostErrors:       atomic.LoadUint64(&b.stats.PostErrors),
	}
}

func (b *Bridge) safeMetricsUpdate(fn func(*metrics.Metrics)) {
	if b.metrics != nil {
		fn(b.metrics)
	}
}
