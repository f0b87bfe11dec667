package rule

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"

	"notification-rules/internal/logger"
	"notification-rules/internal/metrics"
	"notification-rules/internal/notification"
)

// newMockMetrics creates a new metrics instance for testing
func newMockMetrics(t *testing.T) *metrics.Metrics {
	t.Helper()
	// Create a test registry that we can throw away
	reg := prometheus.NewRegistry()
	m, err := metrics.NewMetrics(reg)
	require.NoError(t, err)
	return m
}

// firedAction records one Fire call
type firedAction struct {
	NotificationID string
	Action         Action
}

// recordingFirer records every fired action and can fail selected ones
type recordingFirer struct {
	mu     sync.Mutex
	fired  []firedAction
	failOn func(n notification.Notification, a Action) error
}

func (f *recordingFirer) Fire(_ context.Context, n notification.Notification, a Action) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failOn != nil {
		if err := f.failOn(n, a); err != nil {
			return err
		}
	}
	f.fired = append(f.fired, firedAction{NotificationID: n.ID, Action: a})
	return nil
}

func (f *recordingFirer) Fired() []firedAction {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]firedAction, len(f.fired))
	copy(out, f.fired)
	return out
}

func setupTestProcessor(t *testing.T) (*Processor, *recordingFirer) {
	t.Helper()
	firer := &recordingFirer{}
	return NewProcessor(firer, logger.NewNop(), newMockMetrics(t)), firer
}

// newNotification builds a valid notification with a numbered id
func newNotification(i int, t notification.Type) notification.Notification {
	return notification.Notification{
		ID:          fmt.Sprintf("id%08d", i),
		SessionID:   "session001",
		Type:        t,
		Title:       fmt.Sprintf("title%05d", i),
		Description: fmt.Sprintf("description %08d", i),
	}
}

func logAction() Action { return Action{Type: ActionLog} }

func typeEquals(t notification.Type, mode Mode) Condition {
	return Condition{
		Field:    FieldType,
		Operator: OperatorEqualTo,
		Operand:  StringValue(string(t)),
		Mode:     mode,
	}
}
