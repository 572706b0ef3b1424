package simulation

import (
	"math"
	"math/rand"
	"time"
)

// Reading is one synthetic sensor emission.
type Reading struct {
	DeviceID  string  `json:"deviceId"`
	Timestamp string  `json:"timestamp"`
	Value     float64 `json:"value"`
	Unit      string  `json:"unit,omitempty"`
}

// Generator produces the next reading for a device.
type Generator func(deviceID string) Reading

// Value ranges per sensor type.
const (
	temperatureMin = 18.0
	temperatureMax = 26.0
	humidityMin    = 40.0
	humidityMax    = 80.0
	defaultMin     = 0.0
	defaultMax     = 100.0
)

// GeneratorFor returns the generator matching a sensor type. Unknown
// types get a generic 0-100 generator with no unit.
func GeneratorFor(sensorType string) Generator {
	switch sensorType {
	case "temperature":
		return rangeGenerator(temperatureMin, temperatureMax, "°C")
	case "humidity":
		return rangeGenerator(humidityMin, humidityMax, "%")
	default:
		return rangeGenerator(defaultMin, defaultMax, "")
	}
}

// rangeGenerator builds a generator emitting uniform values in
// [min, max], rounded to one decimal, timestamped in UTC.
func rangeGenerator(min, max float64, unit string) Generator {
	return func(deviceID string) Reading {
		value := min + rand.Float64()*(max-min) //nolint:gosec // simulation data, not crypto
		return Reading{
			DeviceID:  deviceID,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Value:     math.Round(value*10) / 10,
			Unit:      unit,
		}
	}
}
