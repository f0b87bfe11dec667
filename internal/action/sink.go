package action

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"notification-rules/internal/logger"
	"notification-rules/internal/notification"
)

// LogSink writes each notification as one structured log record
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a sink on log
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

// Emit logs every field of n at info level
func (s *LogSink) Emit(_ context.Context, n notification.Notification) error {
	s.logger.Info("notification",
		"id", n.ID,
		"sessionId", n.SessionID,
		"type", n.Type,
		"title", n.Title,
		"description", n.Description)
	return nil
}

// WriterSink writes each notification as a JSON line to w
type WriterSink struct {
	w  io.Writer
	mu sync.Mutex
}

// NewWriterSink creates a sink writing to w
func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

// Emit writes n followed by a newline
func (s *WriterSink) Emit(_ context.Context, n notification.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write notification: %w", err)
	}
	return nil
}
