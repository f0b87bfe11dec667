package rule

import (
	"fmt"
	"strings"

	"notification-rules/internal/notification"
)

// topicLevelEscaper keeps an expanded value inside one topic level on both
// MQTT and NATS
var topicLevelEscaper = strings.NewReplacer(
	"/", "_",
	".", "_",
	"+", "_",
	"#", "_",
	"*", "_",
	">", "_",
	" ", "_",
	"\t", "_",
	"\n", "_",
	"\r", "_",
)

// ExpandTemplate replaces every ${field} in template with that field of n.
// Separators, wildcards and whitespace in the value become '_'.
func ExpandTemplate(template string, n *notification.Notification) (string, error) {
	if !strings.Contains(template, "${") {
		return template, nil
	}

	var expandErr error
	result := templateVariable.ReplaceAllStringFunc(template, func(placeholder string) string {
		name := placeholder[2 : len(placeholder)-1]
		field, err := ParseField(name)
		if err != nil {
			if expandErr == nil {
				expandErr = fmt.Errorf("failed to expand %s: %w", placeholder, err)
			}
			return placeholder
		}
		return topicLevelEscaper.Replace(field.Value(n).String())
	})

	if expandErr != nil {
		return "", expandErr
	}
	return result, nil
}
