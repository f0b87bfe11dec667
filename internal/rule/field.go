package rule

import (
	"errors"
	"fmt"

	"notification-rules/internal/notification"
)

// ErrUnknownField is returned for a field name Notification does not have
var ErrUnknownField = errors.New("unknown notification field")

// Field selects one attribute of a notification
type Field int

const (
	FieldInvalid Field = iota
	FieldID
	FieldSessionID
	FieldType
	FieldTitle
	FieldDescription
)

// accessor reads a field off a notification
type accessor struct {
	name string
	kind Kind
	get  func(n *notification.Notification) Value
}

var fieldAccessors = map[Field]accessor{
	FieldID: {"id", KindString, func(n *notification.Notification) Value {
		return StringValue(n.ID)
	}},
	FieldSessionID: {"sessionId", KindString, func(n *notification.Notification) Value {
		return StringValue(n.SessionID)
	}},
	FieldType: {"type", KindString, func(n *notification.Notification) Value {
		return StringValue(string(n.Type))
	}},
	FieldTitle: {"title", KindString, func(n *notification.Notification) Value {
		return StringValue(n.Title)
	}},
	FieldDescription: {"description", KindString, func(n *notification.Notification) Value {
		return StringValue(n.Description)
	}},
}

// ParseField resolves a notification attribute name
func ParseField(name string) (Field, error) {
	for f, a := range fieldAccessors {
		if a.name == name {
			return f, nil
		}
	}
	return FieldInvalid, fmt.Errorf("%w: %q", ErrUnknownField, name)
}

// Valid reports whether f names a notification attribute
func (f Field) Valid() bool {
	_, ok := fieldAccessors[f]
	return ok
}

// Kind is the kind of value the field holds
func (f Field) Kind() Kind {
	return fieldAccessors[f].kind
}

// Value reads the field from n. Invalid fields yield an invalid Value.
func (f Field) Value(n *notification.Notification) Value {
	a, ok := fieldAccessors[f]
	if !ok {
		return Value{}
	}
	return a.get(n)
}

func (f Field) String() string {
	if a, ok := fieldAccessors[f]; ok {
		return a.name
	}
	return fmt.Sprintf("Field(%d)", int(f))
}

// MarshalText encodes the field by name
func (f Field) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownField, int(f))
	}
	return []byte(f.String()), nil
}

// UnmarshalText decodes a field name
func (f *Field) UnmarshalText(text []byte) error {
	parsed, err := ParseField(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}
