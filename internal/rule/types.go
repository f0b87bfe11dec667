//file: internal/rule/types.go
package rule

import (
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"notification-rules/internal/notification"
)

// Rule fires its actions when a notification of the trigger type arrives
// and every condition holds against the notification history
type Rule struct {
	Name        string            `json:"name,omitempty" yaml:"name,omitempty"`               // Optional, used in logs and errors
	Description string            `json:"description,omitempty" yaml:"description,omitempty"` // Optional rule description
	Trigger     notification.Type `json:"trigger" yaml:"trigger"`                             // Notification type that activates the rule
	Conditions  []Condition       `json:"conditions" yaml:"conditions"`                       // All must hold
	Actions     []Action          `json:"actions" yaml:"actions"`                             // Fired in order
}

// Label identifies the rule in logs
func (r *Rule) Label() string {
	if r.Name != "" {
		return r.Name
	}
	return "trigger:" + string(r.Trigger)
}

// Condition compares a notification field against an operand across the history
type Condition struct {
	Field    Field    `json:"field" yaml:"field"`                   // Notification attribute to read
	Operator Operator `json:"operator" yaml:"operator"`             // Comparison operator
	Operand  Value    `json:"operand" yaml:"operand"`               // Value to compare against
	Mode     Mode     `json:"mode,omitempty" yaml:"mode,omitempty"` // How history matches aggregate
}

// Operator is the comparison applied between a field value and an operand
type Operator int

const (
	OperatorInvalid Operator = iota
	OperatorGreaterThan
	OperatorLessThan
	OperatorEqualTo
)

var operatorNames = map[Operator]string{
	OperatorGreaterThan: "GREATER_THAN",
	OperatorLessThan:    "LESS_THAN",
	OperatorEqualTo:     "EQUAL_TO",
}

// operatorAliases maps accepted text forms to operators
var operatorAliases = map[string]Operator{
	"GREATER_THAN": OperatorGreaterThan,
	">":            OperatorGreaterThan,
	"LESS_THAN":    OperatorLessThan,
	"<":            OperatorLessThan,
	"EQUAL_TO":     OperatorEqualTo,
	"===":          OperatorEqualTo,
}

// Valid reports whether o is a known operator
func (o Operator) Valid() bool {
	_, ok := operatorNames[o]
	return ok
}

func (o Operator) String() string {
	if name, ok := operatorNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Operator(%d)", int(o))
}

// MarshalText encodes the operator by name
func (o Operator) MarshalText() ([]byte, error) {
	if !o.Valid() {
		return nil, fmt.Errorf("invalid operator: %d", int(o))
	}
	return []byte(o.String()), nil
}

// UnmarshalText accepts GREATER_THAN, LESS_THAN, EQUAL_TO or their symbols
func (o *Operator) UnmarshalText(text []byte) error {
	op, ok := operatorAliases[strings.ToUpper(strings.TrimSpace(string(text)))]
	if !ok {
		return fmt.Errorf("invalid operator: %s", text)
	}
	*o = op
	return nil
}

// Mode selects how per-notification matches aggregate over the history
type Mode int

const (
	ModeAll Mode = iota // every notification matches
	ModeAny             // at least one notification matches
	ModeOne             // exactly one notification matches
)

var modeNames = map[Mode]string{
	ModeAll: "ALL",
	ModeAny: "ANY",
	ModeOne: "ONE",
}

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	_, ok := modeNames[m]
	return ok
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// MarshalText encodes the mode by name
func (m Mode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("invalid mode: %d", int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText accepts ALL, ANY or ONE; empty text means ALL
func (m *Mode) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	if name == "" {
		*m = ModeAll
		return nil
	}
	for mode, n := range modeNames {
		if n == name {
			*m = mode
			return nil
		}
	}
	return fmt.Errorf("invalid mode: %s", text)
}

// ActionType enumerates the side effects a rule can perform
type ActionType int

const (
	ActionInvalid ActionType = iota
	ActionLog                // Emit the notification to the log sink
	ActionPublish            // Publish the notification to a broker topic
)

var actionNames = map[ActionType]string{
	ActionLog:     "LOG",
	ActionPublish: "PUBLISH",
}

// Valid reports whether a is a known action type
func (a ActionType) Valid() bool {
	_, ok := actionNames[a]
	return ok
}

func (a ActionType) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return fmt.Sprintf("ActionType(%d)", int(a))
}

// MarshalText encodes the action type by name
func (a ActionType) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("invalid action type: %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText accepts LOG or PUBLISH
func (a *ActionType) UnmarshalText(text []byte) error {
	name := strings.ToUpper(strings.TrimSpace(string(text)))
	for t, n := range actionNames {
		if n == name {
			*a = t
			return nil
		}
	}
	return fmt.Errorf("invalid action type: %s", text)
}

// Action is a side effect fired for a satisfied rule
type Action struct {
	Type  ActionType `json:"type" yaml:"type"`
	Topic string     `json:"topic,omitempty" yaml:"topic,omitempty"` // PUBLISH target, may reference ${field}
}

// actionFields avoids recursing into the custom unmarshalers
type actionFields Action

// UnmarshalJSON accepts either "LOG" or {"type": "PUBLISH", "topic": "..."}
func (a *Action) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err == nil {
		*a = Action{}
		return a.Type.UnmarshalText([]byte(name))
	}

	var fields actionFields
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	*a = Action(fields)
	return nil
}

// UnmarshalYAML accepts either a bare action name or a mapping
func (a *Action) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*a = Action{}
		return a.Type.UnmarshalText([]byte(node.Value))
	}

	var fields actionFields
	if err := node.Decode(&fields); err != nil {
		return err
	}
	*a = Action(fields)
	return nil
}

// RuleValidationError represents a rule validation error
type RuleValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface
func (e *RuleValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// EvaluationError reports a condition that could not be evaluated
type EvaluationError struct {
	Rule     string
	Field    Field
	Operator Operator
	Message  string
	Err      error
}

func (e *EvaluationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rule %s: evaluation error for field '%s' with operator '%s': %s: %v",
			e.Rule, e.Field, e.Operator, e.Message, e.Err)
	}
	return fmt.Sprintf("rule %s: evaluation error for field '%s' with operator '%s': %s",
		e.Rule, e.Field, e.Operator, e.Message)
}

func (e *EvaluationError) Unwrap() error {
	return e.Err
}

// ActionError reports an action that failed to fire
type ActionError struct {
	Rule   string
	Action ActionType
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("rule %s: action %s failed: %v", e.Rule, e.Action, e.Err)
}

func (e *ActionError) Unwrap() error {
	return e.Err
}
