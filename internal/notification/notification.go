// Package notification defines the event record consumed by the rule
// evaluator, its fixed-length validation and a generator of sample records.
package notification

import (
	"encoding/json"
	"fmt"
	"unicode/utf8"
)

// Type is the kind of occurrence a notification reports
type Type string

const (
	TypeMotion Type = "motion"
	TypeDing   Type = "ding"
)

// Fixed field lengths, in characters
const (
	IDLength          = 10
	SessionIDLength   = 10
	TitleLength       = 10
	DescriptionLength = 20
)

// Types lists every known notification type
var Types = []Type{TypeMotion, TypeDing}

// Valid reports whether t is a known type
func (t Type) Valid() bool {
	return t == TypeMotion || t == TypeDing
}

// ParseType converts a string into a Type
func ParseType(s string) (Type, error) {
	t := Type(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown notification type: %q", s)
	}
	return t, nil
}

// Notification is a validated, immutable event record
type Notification struct {
	ID          string `json:"id"`
	SessionID   string `json:"sessionId"` // Groups related notifications
	Type        Type   `json:"type"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ValidationError reports the first field that violates the record shape
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks field lengths and the type literal
func (n Notification) Validate() error {
	fields := []struct {
		name   string
		value  string
		length int
	}{
		{"id", n.ID, IDLength},
		{"sessionId", n.SessionID, SessionIDLength},
		{"title", n.Title, TitleLength},
		{"description", n.Description, DescriptionLength},
	}

	for _, f := range fields {
		if got := utf8.RuneCountInString(f.value); got != f.length {
			return &ValidationError{
				Field:   f.name,
				Message: fmt.Sprintf("must be %d characters, got %d", f.length, got),
			}
		}
	}

	if !n.Type.Valid() {
		return &ValidationError{
			Field:   "type",
			Message: fmt.Sprintf("must be %q or %q, got %q", TypeMotion, TypeDing, n.Type),
		}
	}

	return nil
}

// Decode parses a JSON payload and validates the result
func Decode(data []byte) (Notification, error) {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		return Notification{}, fmt.Errorf("failed to unmarshal notification: %w", err)
	}
	if err := n.Validate(); err != nil {
		return Notification{}, fmt.Errorf("invalid notification: %w", err)
	}
	return n, nil
}
