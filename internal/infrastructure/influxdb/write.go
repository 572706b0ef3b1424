package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteSensorReading records one sensor value.
//
// This is the primary method for recording telemetry flowing off the
// broker. The write is non-blocking; data is batched and sent
// asynchronously.
//
// Example:
//
//	client.WriteSensorReading("salon/capteur/temperature", "temperature", 21.5, "°C")
func (c *Client) WriteSensorReading(topic, sensorType string, value float64, unit string) {
	tags := map[string]string{
		"topic": topic,
		"type":  sensorType,
	}
	if unit != "" {
		tags["unit"] = unit
	}

	c.WritePoint("sensor_readings", tags, map[string]interface{}{
		"value": value,
	})
}

// WriteCommandEvent records a dispatched device command.
//
// Used for auditing the voice pipeline: which device received which
// state transition, and when.
func (c *Client) WriteCommandEvent(sensorID, sensorName, state string, value float64) {
	c.WritePoint("command_events",
		map[string]string{
			"sensor_id": sensorID,
			"state":     state,
		},
		map[string]interface{}{
			"sensor_name": sensorName,
			"value":       value,
		},
	)
}

// WritePoint writes a custom point with full control over tags and fields.
//
// Use this for measurements that don't fit the helper methods.
func (c *Client) WritePoint(measurement string, tags map[string]string, fields map[string]interface{}) {
	c.WritePointWithTime(measurement, tags, fields, time.Now())
}

// WritePointWithTime writes a custom point with a specific timestamp.
//
// Use this when the timestamp is not "now" (e.g., replayed data).
func (c *Client) WritePointWithTime(measurement string, tags map[string]string, fields map[string]interface{}, timestamp time.Time) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(measurement, tags, fields, timestamp)
	c.writeAPI.WritePoint(point)
}
