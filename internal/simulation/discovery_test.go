package simulation

import (
	"context"
	"testing"
	"time"

	"github.com/domovox/domovox-core/internal/directory"
	"github.com/domovox/domovox-core/internal/infrastructure/config"
	"github.com/domovox/domovox-core/internal/infrastructure/logging"
)

// fakeInventory serves canned sensors per type.
type fakeInventory struct {
	byType map[string][]directory.Sensor
}

func (i *fakeInventory) ListSensorsByType(_ context.Context, sensorType string) ([]directory.Sensor, error) {
	return i.byType[sensorType], nil
}

func discoveryConfig() config.SimulationConfig {
	return config.SimulationConfig{
		CheckInterval:   600,
		DefaultInterval: 15,
		SensorTypes:     []string{"temperature", "humidity"},
	}
}

func TestDiscoveryStartsMissingTasks(t *testing.T) {
	s := newTestScheduler(&fakePublisher{})
	defer s.StopAll()

	inv := &fakeInventory{byType: map[string][]directory.Sensor{
		"temperature": {
			{ID: "t-1", Topic: "salon/capteur/temperature", Type: "temperature"},
			{ID: "t-2", Topic: "cave/capteur/temperature", Type: "temperature"},
		},
		"humidity": {
			{ID: "h-1", Topic: "cave/sonde/humidity", Type: "humidity"},
		},
	}}

	d := NewDiscovery(s, inv, discoveryConfig(), logging.Default())
	d.scan(context.Background())

	if got := len(s.List()); got != 3 {
		t.Fatalf("got %d tasks after scan, want 3: %v", got, s.List())
	}
	for _, id := range []string{"t-1", "t-2", "h-1"} {
		if !s.Running(id) {
			t.Errorf("sensor %s not running", id)
		}
	}
}

func TestDiscoveryLeavesRunningTasksAlone(t *testing.T) {
	s := newTestScheduler(&fakePublisher{})
	defer s.StopAll()

	// t-1 already runs on a custom interval.
	custom := 2 * time.Second
	if err := s.Start("t-1", "salon/capteur/temperature", custom, nil); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	inv := &fakeInventory{byType: map[string][]directory.Sensor{
		"temperature": {
			{ID: "t-1", Topic: "salon/capteur/temperature", Type: "temperature"},
		},
	}}

	d := NewDiscovery(s, inv, discoveryConfig(), logging.Default())
	d.scan(context.Background())
	d.scan(context.Background()) // repeated scans must stay idempotent

	tasks := s.List()
	if len(tasks) != 1 {
		t.Fatalf("got %d tasks, want 1", len(tasks))
	}
	if tasks[0].Interval != custom {
		t.Errorf("interval = %v, discovery must not restart running tasks", tasks[0].Interval)
	}
}

func TestDiscoveryRunStopsOnCancel(t *testing.T) {
	s := newTestScheduler(&fakePublisher{})
	defer s.StopAll()

	inv := &fakeInventory{byType: map[string][]directory.Sensor{}}
	d := NewDiscovery(s, inv, discoveryConfig(), logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancel")
	}
}
