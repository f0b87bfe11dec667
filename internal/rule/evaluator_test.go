package rule

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notification-rules/internal/notification"
)

func historyOf(types ...notification.Type) []notification.Notification {
	history := make([]notification.Notification, len(types))
	for i, t := range types {
		history[i] = newNotification(i, t)
	}
	return history
}

func TestEvaluateCondition(t *testing.T) {
	motion := notification.TypeMotion
	ding := notification.TypeDing

	tests := []struct {
		name      string
		condition Condition
		history   []notification.Notification
		want      bool
	}{
		{
			name:      "all matches every entry",
			condition: typeEquals(motion, ModeAll),
			history:   historyOf(motion, motion, motion),
			want:      true,
		},
		{
			name:      "all fails on one mismatch",
			condition: typeEquals(motion, ModeAll),
			history:   historyOf(motion, ding, motion),
			want:      false,
		},
		{
			name:      "all over empty history",
			condition: typeEquals(motion, ModeAll),
			history:   nil,
			want:      true,
		},
		{
			name:      "any with one match",
			condition: typeEquals(ding, ModeAny),
			history:   historyOf(motion, motion, ding),
			want:      true,
		},
		{
			name:      "any without match",
			condition: typeEquals(ding, ModeAny),
			history:   historyOf(motion, motion),
			want:      false,
		},
		{
			name:      "any over empty history",
			condition: typeEquals(ding, ModeAny),
			history:   nil,
			want:      false,
		},
		{
			name:      "one with exactly one match",
			condition: typeEquals(ding, ModeOne),
			history:   historyOf(motion, ding, motion),
			want:      true,
		},
		{
			name:      "one with two matches",
			condition: typeEquals(ding, ModeOne),
			history:   historyOf(ding, motion, ding),
			want:      false,
		},
		{
			name:      "one without match",
			condition: typeEquals(ding, ModeOne),
			history:   historyOf(motion),
			want:      false,
		},
		{
			name: "greater than lexical",
			condition: Condition{
				Field:    FieldType,
				Operator: OperatorGreaterThan,
				Operand:  StringValue("ding"),
				Mode:     ModeAll,
			},
			history: historyOf(motion, motion),
			want:    true,
		},
		{
			name: "less than lexical",
			condition: Condition{
				Field:    FieldType,
				Operator: OperatorLessThan,
				Operand:  StringValue("motion"),
				Mode:     ModeAny,
			},
			history: historyOf(motion, ding),
			want:    true,
		},
		{
			name: "less than fails for equal values",
			condition: Condition{
				Field:    FieldType,
				Operator: OperatorLessThan,
				Operand:  StringValue("motion"),
				Mode:     ModeAny,
			},
			history: historyOf(motion),
			want:    false,
		},
		{
			name: "session id equality",
			condition: Condition{
				Field:    FieldSessionID,
				Operator: OperatorEqualTo,
				Operand:  StringValue("session001"),
				Mode:     ModeAll,
			},
			history: historyOf(motion, ding),
			want:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluateCondition(&tt.condition, tt.history)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateConditions(t *testing.T) {
	motion := notification.TypeMotion
	ding := notification.TypeDing

	tests := []struct {
		name       string
		conditions []Condition
		history    []notification.Notification
		want       bool
	}{
		{
			name:       "no conditions always holds",
			conditions: nil,
			history:    historyOf(motion, ding),
			want:       true,
		},
		{
			name: "both conditions hold",
			conditions: []Condition{
				typeEquals(motion, ModeAny),
				typeEquals(ding, ModeAny),
			},
			history: historyOf(motion, ding),
			want:    true,
		},
		{
			name: "second condition fails",
			conditions: []Condition{
				typeEquals(motion, ModeAny),
				typeEquals(ding, ModeAll),
			},
			history: historyOf(motion, ding),
			want:    false,
		},
		{
			name: "first condition fails",
			conditions: []Condition{
				typeEquals(ding, ModeOne),
				typeEquals(motion, ModeAny),
			},
			history: historyOf(motion),
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := &Rule{Trigger: motion, Conditions: tt.conditions}
			got, err := evaluateConditions(rule, tt.history)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEvaluateConditionsKindMismatch(t *testing.T) {
	rule := &Rule{
		Name:    "numeric-type",
		Trigger: notification.TypeMotion,
		Conditions: []Condition{{
			Field:    FieldType,
			Operator: OperatorEqualTo,
			Operand:  NumberValue(1),
		}},
	}

	ok, err := evaluateConditions(rule, historyOf(notification.TypeMotion))
	assert.False(t, ok)
	require.Error(t, err)

	var evalErr *EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "numeric-type", evalErr.Rule)
	assert.Equal(t, FieldType, evalErr.Field)
	assert.True(t, errors.Is(err, ErrKindMismatch))
}

func TestEvaluateConditionUnsupportedOperator(t *testing.T) {
	condition := Condition{
		Field:    FieldType,
		Operator: OperatorInvalid,
		Operand:  StringValue("motion"),
	}

	_, err := evaluateCondition(&condition, historyOf(notification.TypeMotion))
	var evalErr *EvaluationError
	require.True(t, errors.As(err, &evalErr))
	assert.Equal(t, "unsupported operator", evalErr.Message)
}
