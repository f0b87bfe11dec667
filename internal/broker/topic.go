package broker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidTopic is returned for malformed topic names and filters
var ErrInvalidTopic = errors.New("invalid topic")

// ValidateTopicFilter checks a subscription topic. + and # wildcards must
// occupy a whole level, and # must be the last level.
func ValidateTopicFilter(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}

	levels := strings.Split(topic, "/")
	for i, level := range levels {
		if level == "" && i != 0 && i != len(levels)-1 {
			return fmt.Errorf("%w: empty level in %q", ErrInvalidTopic, topic)
		}

		if strings.Contains(level, "#") {
			if level != "#" {
				return fmt.Errorf("%w: # must occupy a whole level in %q", ErrInvalidTopic, topic)
			}
			if i != len(levels)-1 {
				return fmt.Errorf("%w: # must be the last level in %q", ErrInvalidTopic, topic)
			}
		}

		if strings.Contains(level, "+") && level != "+" {
			return fmt.Errorf("%w: + must occupy a whole level in %q", ErrInvalidTopic, topic)
		}
	}

	return nil
}

// ValidateTopicName checks a publish topic, which may not hold wildcards
func ValidateTopicName(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidTopic)
	}

	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: wildcards not allowed in %q", ErrInvalidTopic, topic)
	}

	levels := strings.Split(topic, "/")
	for i, level := range levels {
		if level == "" && i != 0 && i != len(levels)-1 {
			return fmt.Errorf("%w: empty level in %q", ErrInvalidTopic, topic)
		}
	}

	return nil
}
