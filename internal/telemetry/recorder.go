// Package telemetry records inbound sensor readings off the broker:
// numeric values land in InfluxDB, and the inventory keeps the latest
// value per sensor. Non-JSON payloads and messages without a numeric
// value are skipped; the stream is best-effort and never blocks the
// session's fan-out.
package telemetry

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/domovox/domovox-core/internal/infrastructure/logging"
	"github.com/domovox/domovox-core/internal/infrastructure/mqtt"
)

// Writer is the slice of the InfluxDB client the recorder needs.
type Writer interface {
	WriteSensorReading(topic, sensorType string, value float64, unit string)
}

// Store receives the latest value per sensor topic.
type Store interface {
	RecordReading(ctx context.Context, topic, value string) error
}

// Recorder turns broker messages into time-series points and inventory
// updates.
type Recorder struct {
	writer Writer
	store  Store
	logger *logging.Logger
}

// NewRecorder creates a recorder. Either collaborator may be nil; the
// corresponding sink is skipped.
func NewRecorder(writer Writer, store Store, logger *logging.Logger) *Recorder {
	return &Recorder{writer: writer, store: store, logger: logger}
}

// reading is the subset of a sensor payload the recorder understands.
type reading struct {
	Value json.RawMessage `json:"value"`
	Unit  string          `json:"unit"`
	Type  string          `json:"type"`
}

// Listener returns the session listener to register with OnMessage.
func (r *Recorder) Listener() mqtt.Listener {
	return func(msg mqtt.Message) {
		r.record(msg)
	}
}

func (r *Recorder) record(msg mqtt.Message) {
	var payload reading
	if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
		// Raw string payloads pass through the broker untouched;
		// nothing to record.
		return
	}

	value, ok := numericValue(payload.Value)
	if !ok {
		return
	}

	sensorType := payload.Type
	if sensorType == "" {
		sensorType = typeFromTopic(msg.Topic)
	}

	if r.writer != nil {
		r.writer.WriteSensorReading(msg.Topic, sensorType, value, payload.Unit)
	}
	if r.store != nil {
		stored := strconv.FormatFloat(value, 'f', -1, 64)
		if err := r.store.RecordReading(context.Background(), msg.Topic, stored); err != nil {
			r.logger.Warn("recording reading failed", "topic", msg.Topic, "error", err)
		}
	}
}

// numericValue accepts both JSON numbers and numeric strings.
func numericValue(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// typeFromTopic falls back to the last topic segment, following the
// <room>/<name>/<type> derivation.
func typeFromTopic(topic string) string {
	if i := strings.LastIndex(topic, "/"); i >= 0 {
		return topic[i+1:]
	}
	return ""
}
