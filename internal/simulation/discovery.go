package simulation

import (
	"context"
	"time"

	"github.com/domovox/domovox-core/internal/directory"
	"github.com/domovox/domovox-core/internal/infrastructure/config"
	"github.com/domovox/domovox-core/internal/infrastructure/logging"
)

// Inventory is the slice of the directory the discovery loop reads.
type Inventory interface {
	ListSensorsByType(ctx context.Context, sensorType string) ([]directory.Sensor, error)
}

// Discovery periodically scans the inventory and starts simulation
// tasks for sensor types that should always be emitting.
//
// It only ever starts tasks that are missing. Running tasks keep their
// interval and generator; sensors removed from the inventory are not
// reaped here (their tasks stop when the sensor is deleted through the
// directory service, or at shutdown).
type Discovery struct {
	scheduler *Scheduler
	inventory Inventory
	cfg       config.SimulationConfig
	logger    *logging.Logger
}

// NewDiscovery creates a discovery loop over the given scheduler.
func NewDiscovery(scheduler *Scheduler, inventory Inventory, cfg config.SimulationConfig, logger *logging.Logger) *Discovery {
	return &Discovery{
		scheduler: scheduler,
		inventory: inventory,
		cfg:       cfg,
		logger:    logger,
	}
}

// Run scans immediately, then on every check interval until the context
// is cancelled. It blocks; run it in its own goroutine.
func (d *Discovery) Run(ctx context.Context) {
	d.scan(ctx)

	ticker := time.NewTicker(d.cfg.CheckIntervalDuration())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			d.scan(ctx)
		}
	}
}

// scan starts a task for every matching sensor that doesn't have one.
func (d *Discovery) scan(ctx context.Context) {
	for _, sensorType := range d.cfg.SensorTypes {
		sensors, err := d.inventory.ListSensorsByType(ctx, sensorType)
		if err != nil {
			d.logger.Error("discovery scan failed",
				"sensor_type", sensorType, "error", err)
			continue
		}

		started := 0
		for _, sensor := range sensors {
			if d.scheduler.Running(sensor.ID) {
				continue
			}
			err := d.scheduler.Start(sensor.ID, sensor.Topic,
				d.cfg.DefaultIntervalDuration(), GeneratorFor(sensor.Type))
			if err != nil {
				d.logger.Warn("discovery start failed",
					"sensor_id", sensor.ID, "error", err)
				continue
			}
			started++
		}
		if started > 0 {
			d.logger.Info("discovery started simulations",
				"sensor_type", sensorType, "count", started)
		}
	}
}
