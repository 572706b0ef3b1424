package directory

import (
	"context"
	"errors"
	"testing"

	"github.com/domovox/domovox-core/internal/infrastructure/logging"
)

// fakeBroker records subscription changes without touching a broker.
type fakeBroker struct {
	subscribed   []string
	unsubscribed []string
}

func (b *fakeBroker) Subscribe(topic string) error {
	b.subscribed = append(b.subscribed, topic)
	return nil
}

func (b *fakeBroker) Unsubscribe(topic string) error {
	b.unsubscribed = append(b.unsubscribed, topic)
	return nil
}

func setupService(t *testing.T) (*Service, *fakeBroker) {
	t.Helper()
	broker := &fakeBroker{}
	svc := NewService(NewSQLiteRepository(setupTestDB(t)), broker, logging.Default())
	return svc, broker
}

func TestServiceCreateRoom_DerivesTopic(t *testing.T) {
	svc, broker := setupService(t)

	room, err := svc.CreateRoom(context.Background(), "Chambre d'Élise", "", "")
	if err != nil {
		t.Fatalf("CreateRoom() error = %v", err)
	}
	if room.Topic != "chambred'elise" {
		t.Errorf("topic = %q, want chambred'elise", room.Topic)
	}
	if room.ID == "" {
		t.Error("ID not assigned")
	}
	// The room's base topic is subscribed alongside its sensors.
	if len(broker.subscribed) != 1 || broker.subscribed[0] != room.Topic {
		t.Errorf("subscribed = %v, want [%s]", broker.subscribed, room.Topic)
	}
}

func TestServiceCreateRoom_EmptyName(t *testing.T) {
	svc, _ := setupService(t)

	_, err := svc.CreateRoom(context.Background(), "  ", "", "")
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("CreateRoom() error = %v, want ErrInvalidInput", err)
	}
}

func TestServiceCreateSensor_SubscribesTopic(t *testing.T) {
	svc, broker := setupService(t)

	sensor, err := svc.CreateSensor(context.Background(), "room-salon", "Volet Roulant", "blind")
	if err != nil {
		t.Fatalf("CreateSensor() error = %v", err)
	}
	if sensor.Topic != "salon/voletroulant/blind" {
		t.Errorf("topic = %q, want salon/voletroulant/blind", sensor.Topic)
	}
	if len(broker.subscribed) != 1 || broker.subscribed[0] != sensor.Topic {
		t.Errorf("subscribed = %v", broker.subscribed)
	}
}

func TestServiceCreateSensor_RoomMissing(t *testing.T) {
	svc, broker := setupService(t)

	_, err := svc.CreateSensor(context.Background(), "nope", "Lampe", "light")
	if !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("CreateSensor() error = %v, want ErrRoomNotFound", err)
	}
	if len(broker.subscribed) != 0 {
		t.Errorf("subscribed on failure: %v", broker.subscribed)
	}
}

func TestServiceUpdateSensor_MovesSubscription(t *testing.T) {
	svc, broker := setupService(t)
	ctx := context.Background()

	sensor, err := svc.GetSensor(ctx, "sensor-lampe")
	if err != nil {
		t.Fatalf("GetSensor() error = %v", err)
	}
	sensor.Name = "Plafonnier"

	if err := svc.UpdateSensor(ctx, sensor); err != nil {
		t.Fatalf("UpdateSensor() error = %v", err)
	}
	if sensor.Topic != "salon/plafonnier/light" {
		t.Errorf("topic = %q, want salon/plafonnier/light", sensor.Topic)
	}
	if len(broker.unsubscribed) != 1 || broker.unsubscribed[0] != "salon/lampe/light" {
		t.Errorf("unsubscribed = %v", broker.unsubscribed)
	}
	if len(broker.subscribed) != 1 || broker.subscribed[0] != "salon/plafonnier/light" {
		t.Errorf("subscribed = %v", broker.subscribed)
	}
}

func TestServiceUpdateSensor_NoTopicChangeNoChurn(t *testing.T) {
	svc, broker := setupService(t)
	ctx := context.Background()

	sensor, _ := svc.GetSensor(ctx, "sensor-lampe")
	sensor.Value = "off"

	if err := svc.UpdateSensor(ctx, sensor); err != nil {
		t.Fatalf("UpdateSensor() error = %v", err)
	}
	if len(broker.subscribed)+len(broker.unsubscribed) != 0 {
		t.Errorf("subscription churn without topic change: +%v -%v",
			broker.subscribed, broker.unsubscribed)
	}
}

func TestServiceUpdateRoom_RetopicsSensors(t *testing.T) {
	svc, broker := setupService(t)
	ctx := context.Background()

	room, err := svc.GetRoom(ctx, "room-salon")
	if err != nil {
		t.Fatalf("GetRoom() error = %v", err)
	}
	room.Topic = "Séjour"

	if err := svc.UpdateRoom(ctx, room); err != nil {
		t.Fatalf("UpdateRoom() error = %v", err)
	}
	if room.Topic != "sejour" {
		t.Errorf("room topic = %q, want sejour", room.Topic)
	}

	sensors, _ := svc.ListSensors(ctx, "room-salon")
	for _, sensor := range sensors {
		if got := sensor.Topic[:7]; got != "sejour/" {
			t.Errorf("sensor %s topic = %q, want sejour/ prefix", sensor.ID, sensor.Topic)
		}
	}
	// The base topic moves, plus one unsubscribe and one subscribe per
	// sensor in the room.
	if len(broker.unsubscribed) != 3 || len(broker.subscribed) != 3 {
		t.Errorf("churn = +%v -%v", broker.subscribed, broker.unsubscribed)
	}
	if broker.unsubscribed[0] != "salon" || broker.subscribed[0] != "sejour" {
		t.Errorf("base topic move = -%v +%v", broker.unsubscribed[0], broker.subscribed[0])
	}
}

func TestServiceDeleteSensor_Unsubscribes(t *testing.T) {
	svc, broker := setupService(t)

	if err := svc.DeleteSensor(context.Background(), "sensor-lampe"); err != nil {
		t.Fatalf("DeleteSensor() error = %v", err)
	}
	if len(broker.unsubscribed) != 1 || broker.unsubscribed[0] != "salon/lampe/light" {
		t.Errorf("unsubscribed = %v", broker.unsubscribed)
	}
}

func TestServiceDeleteRoom_UnsubscribesSensors(t *testing.T) {
	svc, broker := setupService(t)

	if err := svc.DeleteRoom(context.Background(), "room-salon"); err != nil {
		t.Fatalf("DeleteRoom() error = %v", err)
	}
	// Both salon sensors plus the room's base topic.
	if len(broker.unsubscribed) != 3 {
		t.Errorf("unsubscribed = %v, want both salon sensors and the base topic",
			broker.unsubscribed)
	}
	if last := broker.unsubscribed[len(broker.unsubscribed)-1]; last != "salon" {
		t.Errorf("base topic not unsubscribed: %v", broker.unsubscribed)
	}
}

func TestServiceRestoreSubscriptions(t *testing.T) {
	svc, broker := setupService(t)

	if err := svc.RestoreSubscriptions(context.Background()); err != nil {
		t.Fatalf("RestoreSubscriptions() error = %v", err)
	}
	// Two room base topics plus three sensor topics.
	if len(broker.subscribed) != 5 {
		t.Errorf("subscribed %d topics, want 5: %v", len(broker.subscribed), broker.subscribed)
	}
}
