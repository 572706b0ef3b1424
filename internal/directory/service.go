package directory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/domovox/domovox-core/internal/infrastructure/logging"
	"github.com/domovox/domovox-core/internal/infrastructure/mqtt"
)

// Broker is the slice of the session the service needs to keep broker
// subscriptions in step with the inventory.
type Broker interface {
	Subscribe(topic string) error
	Unsubscribe(topic string) error
}

// Service layers inventory rules on top of the repository: topic
// derivation, ID assignment, and broker subscription lifecycle.
type Service struct {
	repo   Repository
	broker Broker
	logger *logging.Logger
}

// NewService creates a directory service.
func NewService(repo Repository, broker Broker, logger *logging.Logger) *Service {
	return &Service{repo: repo, broker: broker, logger: logger}
}

// CreateRoom creates a room. When topic is empty it is derived from the
// name; either way the stored topic is normalized.
func (s *Service) CreateRoom(ctx context.Context, name, topic, picture string) (*Room, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: room name required", ErrInvalidInput)
	}
	if topic == "" {
		topic = name
	}

	room := &Room{
		ID:      uuid.NewString(),
		Name:    name,
		Topic:   mqtt.NormalizeTopic(topic),
		Picture: picture,
	}
	if err := s.repo.CreateRoom(ctx, room); err != nil {
		return nil, err
	}

	// The base topic carries room-wide traffic alongside the per-sensor
	// topics underneath it.
	if err := s.broker.Subscribe(room.Topic); err != nil {
		s.logger.Warn("subscribe failed for new room",
			"topic", room.Topic, "error", err)
	}

	s.logger.Info("room created", "room_id", room.ID, "topic", room.Topic)
	return room, nil
}

// UpdateRoom updates a room's name, topic, or picture. When the base
// topic changes, every sensor in the room is re-derived and its broker
// subscription moved to the new topic.
func (s *Service) UpdateRoom(ctx context.Context, room *Room) error {
	current, err := s.repo.GetRoom(ctx, room.ID)
	if err != nil {
		return err
	}

	room.Topic = mqtt.NormalizeTopic(room.Topic)
	if err := s.repo.UpdateRoom(ctx, room); err != nil {
		return err
	}

	if current.Topic == room.Topic {
		return nil
	}

	if err := s.broker.Unsubscribe(current.Topic); err != nil {
		s.logger.Warn("unsubscribe failed for old room topic",
			"topic", current.Topic, "error", err)
	}
	if err := s.broker.Subscribe(room.Topic); err != nil {
		s.logger.Warn("subscribe failed for new room topic",
			"topic", room.Topic, "error", err)
	}

	sensors, err := s.repo.ListSensorsByRoom(ctx, room.ID)
	if err != nil {
		return err
	}
	for i := range sensors {
		if err := s.moveSensorTopic(ctx, &sensors[i], room.Topic); err != nil {
			return err
		}
	}
	return nil
}

// DeleteRoom removes a room and its sensors, dropping the base topic
// and per-sensor subscriptions first.
func (s *Service) DeleteRoom(ctx context.Context, id string) error {
	room, err := s.repo.GetRoom(ctx, id)
	if err != nil {
		return err
	}

	sensors, err := s.repo.ListSensorsByRoom(ctx, id)
	if err != nil {
		return err
	}
	for _, sensor := range sensors {
		if err := s.broker.Unsubscribe(sensor.Topic); err != nil {
			s.logger.Warn("unsubscribe failed during room delete",
				"topic", sensor.Topic, "error", err)
		}
	}
	if err := s.broker.Unsubscribe(room.Topic); err != nil {
		s.logger.Warn("unsubscribe failed for room topic",
			"topic", room.Topic, "error", err)
	}
	return s.repo.DeleteRoom(ctx, id)
}

// GetRoom returns a room by ID.
func (s *Service) GetRoom(ctx context.Context, id string) (*Room, error) {
	return s.repo.GetRoom(ctx, id)
}

// ListRooms returns all rooms.
func (s *Service) ListRooms(ctx context.Context) ([]Room, error) {
	return s.repo.ListRooms(ctx)
}

// CreateSensor creates a sensor in a room, derives its topic, and
// subscribes the broker session to it.
func (s *Service) CreateSensor(ctx context.Context, roomID, name, sensorType string) (*Sensor, error) {
	if strings.TrimSpace(name) == "" || strings.TrimSpace(sensorType) == "" {
		return nil, fmt.Errorf("%w: sensor name and type required", ErrInvalidInput)
	}

	room, err := s.repo.GetRoom(ctx, roomID)
	if err != nil {
		return nil, err
	}

	sensor := &Sensor{
		ID:     uuid.NewString(),
		RoomID: room.ID,
		Name:   name,
		Type:   sensorType,
		Topic:  mqtt.SensorTopic(room.Topic, name, sensorType),
	}
	if err := s.repo.CreateSensor(ctx, sensor); err != nil {
		return nil, err
	}

	if err := s.broker.Subscribe(sensor.Topic); err != nil {
		s.logger.Warn("subscribe failed for new sensor",
			"topic", sensor.Topic, "error", err)
	}

	s.logger.Info("sensor created",
		"sensor_id", sensor.ID, "topic", sensor.Topic, "type", sensor.Type)
	return sensor, nil
}

// UpdateSensor updates a sensor's name or type. Both feed the derived
// topic, so a change moves the broker subscription.
func (s *Service) UpdateSensor(ctx context.Context, sensor *Sensor) error {
	current, err := s.repo.GetSensor(ctx, sensor.ID)
	if err != nil {
		return err
	}

	room, err := s.repo.GetRoom(ctx, current.RoomID)
	if err != nil {
		return err
	}

	sensor.RoomID = current.RoomID
	if sensor.Value == "" {
		sensor.Value = current.Value
	}
	sensor.Topic = mqtt.SensorTopic(room.Topic, sensor.Name, sensor.Type)
	if err := s.repo.UpdateSensor(ctx, sensor); err != nil {
		return err
	}

	if current.Topic != sensor.Topic {
		if err := s.broker.Unsubscribe(current.Topic); err != nil {
			s.logger.Warn("unsubscribe failed for renamed sensor",
				"topic", current.Topic, "error", err)
		}
		if err := s.broker.Subscribe(sensor.Topic); err != nil {
			s.logger.Warn("subscribe failed for renamed sensor",
				"topic", sensor.Topic, "error", err)
		}
	}
	return nil
}

// DeleteSensor removes a sensor and drops its broker subscription.
func (s *Service) DeleteSensor(ctx context.Context, id string) error {
	sensor, err := s.repo.GetSensor(ctx, id)
	if err != nil {
		return err
	}

	if err := s.broker.Unsubscribe(sensor.Topic); err != nil {
		s.logger.Warn("unsubscribe failed during sensor delete",
			"topic", sensor.Topic, "error", err)
	}
	return s.repo.DeleteSensor(ctx, id)
}

// GetSensor returns a sensor by ID.
func (s *Service) GetSensor(ctx context.Context, id string) (*Sensor, error) {
	return s.repo.GetSensor(ctx, id)
}

// ListSensors returns all sensors, optionally scoped to a room.
func (s *Service) ListSensors(ctx context.Context, roomID string) ([]Sensor, error) {
	if roomID != "" {
		return s.repo.ListSensorsByRoom(ctx, roomID)
	}
	return s.repo.ListSensors(ctx)
}

// ListSensorsByType returns sensors of one type across all rooms.
func (s *Service) ListSensorsByType(ctx context.Context, sensorType string) ([]Sensor, error) {
	return s.repo.ListSensorsByType(ctx, sensorType)
}

// RecordReading stores the latest observed value for a topic. Readings
// for topics not in the inventory are ignored.
func (s *Service) RecordReading(ctx context.Context, topic, value string) error {
	return s.repo.UpdateSensorValue(ctx, topic, value)
}

// RestoreSubscriptions subscribes the session to every known room and
// sensor topic. Called once at startup so the inventory survives
// restarts.
func (s *Service) RestoreSubscriptions(ctx context.Context) error {
	rooms, err := s.repo.ListRooms(ctx)
	if err != nil {
		return err
	}
	for _, room := range rooms {
		if err := s.broker.Subscribe(room.Topic); err != nil {
			return fmt.Errorf("restoring subscription for %s: %w", room.Topic, err)
		}
	}

	sensors, err := s.repo.ListSensors(ctx)
	if err != nil {
		return err
	}
	for _, sensor := range sensors {
		if err := s.broker.Subscribe(sensor.Topic); err != nil {
			return fmt.Errorf("restoring subscription for %s: %w", sensor.Topic, err)
		}
	}
	s.logger.Info("subscriptions restored",
		"rooms", len(rooms), "sensors", len(sensors))
	return nil
}

// moveSensorTopic re-derives one sensor's topic under a new room base
// topic and moves its broker subscription.
func (s *Service) moveSensorTopic(ctx context.Context, sensor *Sensor, roomTopic string) error {
	oldTopic := sensor.Topic
	sensor.Topic = mqtt.SensorTopic(roomTopic, sensor.Name, sensor.Type)
	if sensor.Topic == oldTopic {
		return nil
	}

	if err := s.repo.UpdateSensor(ctx, sensor); err != nil {
		return err
	}
	if err := s.broker.Unsubscribe(oldTopic); err != nil {
		s.logger.Warn("unsubscribe failed during room move",
			"topic", oldTopic, "error", err)
	}
	if err := s.broker.Subscribe(sensor.Topic); err != nil {
		s.logger.Warn("subscribe failed during room move",
			"topic", sensor.Topic, "error", err)
	}
	return nil
}
