package mqtt

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// TopicAll is the universal multi-level wildcard: it matches every topic on
// the broker. Used only by the diagnostic global listener.
const TopicAll = "#"

// topicSeparator joins topic segments.
const topicSeparator = "/"

// normalizer strips combining marks after NFD decomposition, so "é"
// becomes "e". Shared and safe for concurrent use via transform.String.
var normalizer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// NormalizeTopic derives a canonical topic string from human-entered text:
// diacritics stripped, whitespace removed, lowercased. Segment separators
// are preserved.
//
// Normalization is idempotent: applying it to an already-normalized topic
// returns the same string.
//
// Example: "Living Room/Lampe/light" -> "livingroom/lampe/light"
func NormalizeTopic(topic string) string {
	stripped, _, err := transform.String(normalizer, topic)
	if err != nil {
		// Transform only fails on invalid UTF-8; fall back to the raw text
		// so a topic is still produced.
		stripped = topic
	}

	var b strings.Builder
	b.Grow(len(stripped))
	for _, r := range stripped {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// SensorTopic derives the topic for a sensor from its room's base topic,
// its name, and its type: <roomTopic>/<name>/<type>, normalized.
//
// Example: SensorTopic("salon", "Lampe", "light") -> "salon/lampe/light"
func SensorTopic(roomTopic, name, sensorType string) string {
	return NormalizeTopic(roomTopic + topicSeparator + name + topicSeparator + sensorType)
}
