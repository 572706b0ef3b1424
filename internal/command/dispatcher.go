package command

import (
	"context"
	"fmt"
	"time"

	"github.com/domovox/domovox-core/internal/directory"
	"github.com/domovox/domovox-core/internal/infrastructure/logging"
)

// Inventory is the slice of the directory the dispatcher reads.
type Inventory interface {
	ListRooms(ctx context.Context) ([]directory.Room, error)
	ListSensors(ctx context.Context, roomID string) ([]directory.Sensor, error)
}

// Publisher is the slice of the broker session the dispatcher writes to.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// EventWriter records dispatched commands in the time-series store for
// auditing. Optional; nil disables recording.
type EventWriter interface {
	WriteCommandEvent(sensorID, sensorName, state string, value float64)
}

// Payload is the message published to each matching sensor's topic.
type Payload struct {
	Timestamp  string `json:"timestamp"`
	SensorID   string `json:"sensorId"`
	SensorName string `json:"sensorName"`
	State      string `json:"state"`
	Value      any    `json:"value,omitempty"`
}

// Outcome reports what a command did, recognized or not. Fields fill
// in as resolution progresses, so a partial failure still says how far
// the text got.
type Outcome struct {
	Processed bool   `json:"processed"`
	Result    string `json:"result"`
	Room      string `json:"room,omitempty"`
	Action    Action `json:"action,omitempty"`
	Device    string `json:"device,omitempty"`
	Value     any    `json:"value,omitempty"`
}

// Dispatcher resolves command text against the inventory and publishes
// the resulting payloads.
type Dispatcher struct {
	inventory Inventory
	publisher Publisher
	events    EventWriter
	logger    *logging.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(inventory Inventory, publisher Publisher, logger *logging.Logger) *Dispatcher {
	return &Dispatcher{inventory: inventory, publisher: publisher, logger: logger}
}

// SetEventWriter enables command auditing through the given writer.
func (d *Dispatcher) SetEventWriter(events EventWriter) {
	d.events = events
}

// Process parses one command and fans it out to every matching sensor.
//
// Resolution stops at the first missing piece and the outcome's Result
// says which piece that was. Publish failures for individual sensors
// are logged and skipped; the command still counts as processed when
// at least one sensor was addressed.
func (d *Dispatcher) Process(ctx context.Context, text string) Outcome {
	d.logger.Info("processing command", "text", text)

	outcome := Outcome{Result: "Command not recognized"}

	rooms, err := d.inventory.ListRooms(ctx)
	if err != nil {
		d.logger.Error("listing rooms failed", "error", err)
		outcome.Result = "Error: " + err.Error()
		return outcome
	}

	room := FindRoom(text, rooms)
	if room == nil {
		d.logger.Warn("no matching room in command", "text", text)
		outcome.Result = "No matching room found in command"
		return outcome
	}
	outcome.Room = room.Name

	action := FindAction(text)
	if action == "" {
		d.logger.Warn("no action in command", "text", text)
		outcome.Result = fmt.Sprintf("No action found for room %s", room.Name)
		return outcome
	}
	outcome.Action = action

	deviceType := FindDeviceType(text)
	if deviceType == "" {
		d.logger.Warn("no device type in command", "text", text)
		outcome.Result = fmt.Sprintf("No device type found for %s action in %s", action, room.Name)
		return outcome
	}
	outcome.Device = deviceType

	sensors, err := d.inventory.ListSensors(ctx, room.ID)
	if err != nil {
		d.logger.Error("listing sensors failed", "room_id", room.ID, "error", err)
		outcome.Result = "Error: " + err.Error()
		return outcome
	}

	var matching []directory.Sensor
	for _, sensor := range sensors {
		if MatchesDeviceType(sensor, deviceType) {
			matching = append(matching, sensor)
		}
	}
	if len(matching) == 0 {
		d.logger.Warn("no matching sensors",
			"room", room.Name, "device_type", deviceType)
		outcome.Result = fmt.Sprintf("No %s found in %s", deviceType, room.Name)
		return outcome
	}

	var value any
	if action == ActionSet {
		value = ExtractValue(text, deviceType)
		outcome.Value = value
	}

	dispatched := 0
	for _, sensor := range matching {
		if err := d.dispatch(sensor, action, value); err != nil {
			d.logger.Warn("dispatch failed",
				"sensor_id", sensor.ID, "topic", sensor.Topic, "error", err)
			continue
		}
		dispatched++
	}
	if dispatched == 0 {
		outcome.Result = fmt.Sprintf("Failed to reach any %s in %s", deviceType, room.Name)
		return outcome
	}

	outcome.Processed = true
	outcome.Result = successMessage(action, deviceType, room.Name, value)
	return outcome
}

// dispatch publishes one command payload to one sensor.
func (d *Dispatcher) dispatch(sensor directory.Sensor, action Action, value any) error {
	if sensor.Topic == "" {
		return fmt.Errorf("sensor %s has no topic", sensor.Name)
	}

	payload := Payload{
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
		SensorID:   sensor.ID,
		SensorName: sensor.Name,
		State:      string(action),
	}
	switch action {
	case ActionOn:
		payload.Value = 1
	case ActionOff:
		payload.Value = 0
	case ActionSet:
		payload.Value = value
	case ActionGet:
		// State only; the device answers on its own topic.
	}

	d.logger.Info("dispatching command",
		"action", string(action), "sensor", sensor.Name, "topic", sensor.Topic)
	if err := d.publisher.PublishJSON(sensor.Topic, payload); err != nil {
		return err
	}

	if d.events != nil {
		d.events.WriteCommandEvent(sensor.ID, sensor.Name, string(action), eventValue(payload.Value))
	}
	return nil
}

// eventValue flattens a payload value into the numeric form the
// time-series store takes. Binary states map to 1/0; anything
// non-numeric records as zero.
func eventValue(v any) float64 {
	switch value := v.(type) {
	case float64:
		return value
	case int:
		return float64(value)
	case string:
		if value == "on" {
			return 1
		}
		return 0
	default:
		return 0
	}
}

// successMessage phrases the outcome for the user, in French like the
// commands themselves.
func successMessage(action Action, deviceType, roomName string, value any) string {
	switch action {
	case ActionOn:
		return fmt.Sprintf("%s dans %s allumé(e)", deviceType, roomName)
	case ActionOff:
		return fmt.Sprintf("%s dans %s éteint(e)", deviceType, roomName)
	case ActionSet:
		return fmt.Sprintf("%s dans %s réglé(e) à %v", deviceType, roomName, value)
	case ActionGet:
		return fmt.Sprintf("État du/de la %s dans %s demandé", deviceType, roomName)
	default:
		return fmt.Sprintf("Commande exécutée pour %s dans %s", deviceType, roomName)
	}
}
