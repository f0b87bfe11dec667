package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"

	"notification-rules/internal/logger"
	"notification-rules/internal/metrics"
	"notification-rules/internal/notification"
	"notification-rules/internal/rule"
)

var (
	// ErrNoPublisher is returned by PUBLISH actions when no broker is configured
	ErrNoPublisher = errors.New("no publisher configured")

	// ErrUnknownAction is returned for action types the dispatcher cannot run
	ErrUnknownAction = errors.New("unknown action type")
)

// Sink receives notifications for LOG actions
type Sink interface {
	Emit(ctx context.Context, n notification.Notification) error
}

// Publisher sends a payload to a broker topic
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// Dispatcher runs rule actions. It implements rule.Firer.
type Dispatcher struct {
	sink      Sink
	publisher Publisher
	logger    *logger.Logger
	metrics   *metrics.Metrics
	stats     DispatcherStats
}

// DispatcherStats counts dispatched actions
type DispatcherStats struct {
	Logged    uint64
	Published uint64
	Errors    uint64
}

// NewDispatcher creates a dispatcher. publisher may be nil, in which case
// PUBLISH actions fail with ErrNoPublisher.
func NewDispatcher(sink Sink, publisher Publisher, log *logger.Logger, m *metrics.Metrics) *Dispatcher {
	return &Dispatcher{
		sink:      sink,
		publisher: publisher,
		logger:    log,
		metrics:   m,
	}
}

// Fire runs a single action for n
func (d *Dispatcher) Fire(ctx context.Context, n notification.Notification, a rule.Action) error {
	var err error
	switch a.Type {
	case rule.ActionLog:
		err = d.log(ctx, n)
	case rule.ActionPublish:
		err = d.publish(ctx, n, a.Topic)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownAction, a.Type)
	}

	if err != nil {
		atomic.AddUint64(&d.stats.Errors, 1)
		d.safeMetricsUpdate(func(m *metrics.Metrics) {
			m.IncActionsTotal(a.Type.String(), "error")
		})
		return err
	}

	d.safeMetricsUpdate(func(m *metrics.Metrics) {
		m.IncActionsTotal(a.Type.String(), "success")
	})
	return nil
}

func (d *Dispatcher) log(ctx context.Context, n notification.Notification) error {
	if err := d.sink.Emit(ctx, n); err != nil {
		return fmt.Errorf("failed to emit notification %s: %w", n.ID, err)
	}
	atomic.AddUint64(&d.stats.Logged, 1)
	return nil
}

func (d *Dispatcher) publish(ctx context.Context, n notification.Notification, template string) error {
	if d.publisher == nil {
		return ErrNoPublisher
	}

	topic, err := rule.ExpandTemplate(template, &n)
	if err != nil {
		return err
	}

	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification %s: %w", n.ID, err)
	}

	if err := d.publisher.Publish(ctx, topic, payload); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", topic, err)
	}

	atomic.AddUint64(&d.stats.Published, 1)
	d.logger.Debug("published notification",
		"topic", topic,
		"notification", n.ID,
		"payloadSize", len(payload))

	return nil
}

// GetStats returns current dispatcher statistics
func (d *Dispatcher) GetStats() DispatcherStats {
	return DispatcherStats{
		Logged:    atomic.LoadUint64(&d.stats.Logged),
		Published: atomic.LoadUint64(&d.stats.Published),
		Errors:    atomic.LoadUint64(&d.stats.Errors),
	}
}

func (d *Dispatcher) safeMetricsUpdate(fn func(*metrics.Metrics)) {
	if d.metrics != nil {
		fn(d.metrics)
	}
}
