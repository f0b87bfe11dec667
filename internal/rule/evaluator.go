//file: internal/rule/evaluator.go

package rule

import (
	"errors"
	"fmt"

	"notification-rules/internal/notification"
)

// evaluateConditions reports whether every condition holds against the history.
// An empty condition list always holds.
func evaluateConditions(rule *Rule, history []notification.Notification) (bool, error) {
	for i := range rule.Conditions {
		ok, err := evaluateCondition(&rule.Conditions[i], history)
		if err != nil {
			var evalErr *EvaluationError
			if errors.As(err, &evalErr) {
				evalErr.Rule = rule.Label()
			}
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// evaluateCondition tests the condition against each notification in the
// history and aggregates the matches by the condition's mode
func evaluateCondition(condition *Condition, history []notification.Notification) (bool, error) {
	matches := 0

	for i := range history {
		ok, err := matchNotification(condition, &history[i])
		if err != nil {
			return false, err
		}

		if !ok {
			if condition.Mode == ModeAll {
				return false, nil
			}
			continue
		}

		matches++
		switch condition.Mode {
		case ModeAny:
			return true, nil
		case ModeOne:
			if matches > 1 {
				return false, nil
			}
		}
	}

	switch condition.Mode {
	case ModeAll:
		return true, nil
	case ModeAny:
		return false, nil
	case ModeOne:
		return matches == 1, nil
	default:
		return false, &EvaluationError{
			Field:    condition.Field,
			Operator: condition.Operator,
			Message:  fmt.Sprintf("unsupported mode: %s", condition.Mode),
		}
	}
}

// matchNotification applies the operator to one notification's field value
func matchNotification(condition *Condition, n *notification.Notification) (bool, error) {
	cmp, err := condition.Field.Value(n).Compare(condition.Operand)
	if err != nil {
		return false, &EvaluationError{
			Field:    condition.Field,
			Operator: condition.Operator,
			Message:  "operand is not comparable with field",
			Err:      err,
		}
	}

	switch condition.Operator {
	case OperatorGreaterThan:
		return cmp > 0, nil
	case OperatorLessThan:
		return cmp < 0, nil
	case OperatorEqualTo:
		return cmp == 0, nil
	default:
		return false, &EvaluationError{
			Field:    condition.Field,
			Operator: condition.Operator,
			Message:  "unsupported operator",
		}
	}
}
