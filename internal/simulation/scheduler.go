package simulation

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/domovox/domovox-core/internal/infrastructure/logging"
)

// minInterval is the floor for emission intervals; anything shorter is
// clamped so a bad request cannot flood the broker.
const minInterval = 100 * time.Millisecond

// Publisher is the slice of the broker session the scheduler needs.
type Publisher interface {
	PublishJSON(topic string, v any) error
}

// Task describes one running simulation.
type Task struct {
	DeviceID string        `json:"deviceId"`
	Topic    string        `json:"topic"`
	Interval time.Duration `json:"interval"`
}

// task is the internal run state for one device.
type task struct {
	Task
	generator Generator
	stop      chan struct{}
	done      chan struct{}
}

// Scheduler runs at most one simulation task per device ID.
//
// All methods are safe for concurrent use.
type Scheduler struct {
	publisher Publisher
	logger    *logging.Logger

	mu    sync.Mutex
	tasks map[string]*task
}

// NewScheduler creates a scheduler publishing through the given session.
func NewScheduler(publisher Publisher, logger *logging.Logger) *Scheduler {
	return &Scheduler{
		publisher: publisher,
		logger:    logger,
		tasks:     make(map[string]*task),
	}
}

// Start begins emitting readings for a device. If a task already runs
// for the device ID it is stopped and replaced; the new interval and
// generator take effect immediately.
//
// The first reading is emitted after one full interval, not at start.
func (s *Scheduler) Start(deviceID, topic string, interval time.Duration, gen Generator) error {
	if deviceID == "" {
		return fmt.Errorf("simulation: device id required")
	}
	if topic == "" {
		return fmt.Errorf("simulation: topic required for device %s", deviceID)
	}
	if gen == nil {
		gen = GeneratorFor("")
	}
	if interval < minInterval {
		interval = minInterval
	}

	t := &task{
		Task:      Task{DeviceID: deviceID, Topic: topic, Interval: interval},
		generator: gen,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}

	s.mu.Lock()
	if old, ok := s.tasks[deviceID]; ok {
		close(old.stop)
	}
	s.tasks[deviceID] = t
	s.mu.Unlock()

	go s.run(t)

	s.logger.Info("simulation started",
		"device_id", deviceID, "topic", topic, "interval", interval.String())
	return nil
}

// run emits readings until the task is stopped.
func (s *Scheduler) run(t *task) {
	defer close(t.done)

	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.stop:
			return
		case <-ticker.C:
			reading := t.generator(t.DeviceID)
			if err := s.publisher.PublishJSON(t.Topic, reading); err != nil {
				// A down broker must not kill the task; the next tick
				// tries again.
				s.logger.Warn("simulation publish failed",
					"device_id", t.DeviceID, "topic", t.Topic, "error", err)
			}
		}
	}
}

// Stop halts the task for a device. Stopping an unknown device is a
// no-op; the return reports whether a task was actually running.
func (s *Scheduler) Stop(deviceID string) bool {
	s.mu.Lock()
	t, ok := s.tasks[deviceID]
	if ok {
		close(t.stop)
		delete(s.tasks, deviceID)
	}
	s.mu.Unlock()

	if ok {
		<-t.done
		s.logger.Info("simulation stopped", "device_id", deviceID)
	}
	return ok
}

// StopAll halts every running task. Used at shutdown.
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	stopped := make([]*task, 0, len(s.tasks))
	for id, t := range s.tasks {
		close(t.stop)
		delete(s.tasks, id)
		stopped = append(stopped, t)
	}
	s.mu.Unlock()

	for _, t := range stopped {
		<-t.done
	}
	if len(stopped) > 0 {
		s.logger.Info("all simulations stopped", "count", len(stopped))
	}
}

// Running reports whether a task exists for the device.
func (s *Scheduler) Running(deviceID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tasks[deviceID]
	return ok
}

// List returns a snapshot of running tasks, sorted by device ID.
func (s *Scheduler) List() []Task {
	s.mu.Lock()
	out := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t.Task)
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}
