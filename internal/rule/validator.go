//file: internal/rule/validator.go
package rule

import (
	"fmt"
	"regexp"
)

// templateVariable matches ${field} references in a PUBLISH topic
var templateVariable = regexp.MustCompile(`\${([^}]*)}`)

// Validate reports whether r can be registered, returning a
// *RuleValidationError naming the first offending part
func (r *Rule) Validate() error {
	return validateRule(r)
}

// validateRule performs comprehensive validation of a rule
func validateRule(rule *Rule) error {
	if rule == nil {
		return &RuleValidationError{
			Field:   "rule",
			Message: "rule cannot be nil",
		}
	}

	if !rule.Trigger.Valid() {
		return &RuleValidationError{
			Field:   "trigger",
			Message: fmt.Sprintf("unknown notification type: %q", rule.Trigger),
		}
	}

	for i := range rule.Conditions {
		if err := validateCondition(&rule.Conditions[i]); err != nil {
			return &RuleValidationError{
				Field:   fmt.Sprintf("conditions[%d]", i),
				Message: err.Error(),
			}
		}
	}

	for i := range rule.Actions {
		if err := validateAction(&rule.Actions[i]); err != nil {
			return &RuleValidationError{
				Field:   fmt.Sprintf("actions[%d]", i),
				Message: err.Error(),
			}
		}
	}

	return nil
}

// validateCondition checks the field, operator, mode and operand kind
func validateCondition(condition *Condition) error {
	if !condition.Field.Valid() {
		return fmt.Errorf("%w: %s", ErrUnknownField, condition.Field)
	}

	if !condition.Operator.Valid() {
		return fmt.Errorf("invalid operator: %s", condition.Operator)
	}

	if !condition.Mode.Valid() {
		return fmt.Errorf("invalid mode: %s", condition.Mode)
	}

	if condition.Operand.Kind() != condition.Field.Kind() {
		return fmt.Errorf("%w: field %s is a %s, operand is a %s",
			ErrKindMismatch, condition.Field, condition.Field.Kind(), condition.Operand.Kind())
	}

	return nil
}

// validateAction checks if an action configuration is valid
func validateAction(action *Action) error {
	switch action.Type {
	case ActionLog:
		return nil
	case ActionPublish:
		if action.Topic == "" {
			return fmt.Errorf("publish topic cannot be empty")
		}
		return validateTemplate(action.Topic)
	default:
		return fmt.Errorf("invalid action type: %s", action.Type)
	}
}

// validateTemplate checks that every ${...} reference names a notification field
func validateTemplate(template string) error {
	for _, match := range templateVariable.FindAllStringSubmatch(template, -1) {
		if _, err := ParseField(match[1]); err != nil {
			return fmt.Errorf("invalid template variable: %w", err)
		}
	}
	return nil
}
