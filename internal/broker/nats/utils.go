package nats

import (
	"strings"
)

// ToNATSSubject converts an MQTT topic to a NATS subject.
// MQTT separates levels with / and uses + and # as wildcards;
// NATS uses . with * and >.
func ToNATSSubject(mqttTopic string) string {
	subject := strings.ReplaceAll(mqttTopic, "+", "*")
	subject = strings.ReplaceAll(subject, "#", ">")
	return strings.ReplaceAll(subject, "/", ".")
}

// ToMQTTTopic converts a NATS subject back to MQTT form
func ToMQTTTopic(natsSubject string) string {
	topic := strings.ReplaceAll(natsSubject, "*", "+")
	topic = strings.ReplaceAll(topic, ">", "#")
	return strings.ReplaceAll(topic, ".", "/")
}

// subjectReplacer maps characters NATS subjects cannot carry
var subjectReplacer = strings.NewReplacer(
	" ", "_",
	"\t", "_",
	",", "_",
	":", "_",
	"?", "_",
	"[", "_",
	"]", "_",
)

// NormalizeSubject replaces characters that are invalid in a NATS subject,
// such as spaces from expanded notification titles
func NormalizeSubject(subject string) string {
	return subjectReplacer.Replace(subject)
}
