package rule

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrKindMismatch is returned when values of different kinds are compared
var ErrKindMismatch = errors.New("value kinds do not match")

// Kind identifies which member of a Value is set
type Kind int

const (
	KindInvalid Kind = iota
	KindString
	KindNumber
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	default:
		return "invalid"
	}
}

// Value is a string, number or boolean operand or field value
type Value struct {
	kind Kind
	str  string
	num  float64
	b    bool
}

// StringValue wraps a string
func StringValue(s string) Value { return Value{kind: KindString, str: s} }

// NumberValue wraps a number
func NumberValue(f float64) Value { return Value{kind: KindNumber, num: f} }

// BoolValue wraps a boolean
func BoolValue(b bool) Value { return Value{kind: KindBool, b: b} }

// Kind returns the kind of the value
func (v Value) Kind() Kind { return v.kind }

// Compare orders v against o. Both values must be of the same kind;
// booleans order false before true.
func (v Value) Compare(o Value) (int, error) {
	if v.kind == KindInvalid || v.kind != o.kind {
		return 0, fmt.Errorf("%w: %s vs %s", ErrKindMismatch, v.kind, o.kind)
	}

	switch v.kind {
	case KindString:
		return strings.Compare(v.str, o.str), nil
	case KindNumber:
		switch {
		case v.num < o.num:
			return -1, nil
		case v.num > o.num:
			return 1, nil
		}
		return 0, nil
	default:
		if v.b == o.b {
			return 0, nil
		}
		if v.b {
			return 1, nil
		}
		return -1, nil
	}
}

func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		return "<invalid>"
	}
}

// MarshalJSON encodes the value as a JSON scalar
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindString:
		return json.Marshal(v.str)
	case KindNumber:
		return json.Marshal(v.num)
	case KindBool:
		return json.Marshal(v.b)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON string, number or boolean
func (v *Value) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch val := raw.(type) {
	case string:
		*v = StringValue(val)
	case float64:
		*v = NumberValue(val)
	case bool:
		*v = BoolValue(val)
	default:
		return fmt.Errorf("operand must be a string, number or boolean, got %s", string(data))
	}
	return nil
}

// MarshalYAML encodes the value as a YAML scalar
func (v Value) MarshalYAML() (interface{}, error) {
	switch v.kind {
	case KindString:
		return v.str, nil
	case KindNumber:
		return v.num, nil
	case KindBool:
		return v.b, nil
	default:
		return nil, nil
	}
}

// UnmarshalYAML decodes a YAML scalar using its resolved tag
func (v *Value) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: operand must be a scalar", node.Line)
	}

	switch node.ShortTag() {
	case "!!str":
		*v = StringValue(node.Value)
	case "!!int", "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return err
		}
		*v = NumberValue(f)
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return err
		}
		*v = BoolValue(b)
	default:
		return fmt.Errorf("line %d: operand must be a string, number or boolean", node.Line)
	}
	return nil
}
