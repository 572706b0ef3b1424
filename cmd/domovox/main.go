// Domovox Core - Smart Home Voice and Simulation Hub
//
// This is the main entry point for the Domovox Core application. It
// wires the broker session, the device directory, the sensor
// simulation scheduler, the telemetry recorder, and the HTTP API into
// one process and keeps them running until a shutdown signal arrives.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/domovox/domovox-core/migrations"

	"github.com/domovox/domovox-core/internal/api"
	"github.com/domovox/domovox-core/internal/command"
	"github.com/domovox/domovox-core/internal/directory"
	"github.com/domovox/domovox-core/internal/infrastructure/config"
	"github.com/domovox/domovox-core/internal/infrastructure/database"
	"github.com/domovox/domovox-core/internal/infrastructure/influxdb"
	"github.com/domovox/domovox-core/internal/infrastructure/logging"
	"github.com/domovox/domovox-core/internal/infrastructure/mqtt"
	"github.com/domovox/domovox-core/internal/simulation"
	"github.com/domovox/domovox-core/internal/speech"
	"github.com/domovox/domovox-core/internal/telemetry"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	// Cancel on interrupt signals for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for
// testability. Returning an error allows main to handle exit codes
// consistently.
func run(ctx context.Context) error {
	// Use default logger until config is loaded
	log := logging.Default()
	log.Info("starting Domovox Core",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	// Load configuration
	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	// Reinitialise logger with config settings
	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(ctx, database.Config{
		Path:        cfg.Database.Path,
		WALMode:     cfg.Database.WALMode,
		BusyTimeout: cfg.Database.BusyTimeout,
	})
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	// Run migrations
	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	log.Info("database migrations complete")

	// Connect to the MQTT broker
	session, err := mqtt.Connect(cfg.MQTT)
	if err != nil {
		return fmt.Errorf("connecting to MQTT: %w", err)
	}
	defer func() {
		log.Info("disconnecting from MQTT")
		if closeErr := session.Close(); closeErr != nil {
			log.Error("error closing MQTT", "error", closeErr)
		}
	}()
	session.SetLogger(log)
	log.Info("MQTT session established",
		"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
		"client_id", cfg.MQTT.Broker.ClientID,
		"connected", session.IsConnected(),
	)

	// Device directory over SQLite, subscriptions kept in step with
	// the broker session.
	dir := directory.NewService(directory.NewSQLiteRepository(db.DB), session, log)
	if restoreErr := dir.RestoreSubscriptions(ctx); restoreErr != nil {
		return fmt.Errorf("restoring sensor subscriptions: %w", restoreErr)
	}

	// Global listener logs every inbound message by device category.
	if listenErr := session.StartGlobalListener(); listenErr != nil {
		return fmt.Errorf("starting global listener: %w", listenErr)
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	influxClient, err = influxdb.Connect(cfg.InfluxDB)
	switch {
	case errors.Is(err, influxdb.ErrDisabled):
		influxClient = nil
		log.Info("InfluxDB disabled")
	case err != nil:
		return fmt.Errorf("connecting to InfluxDB: %w", err)
	default:
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
		)
	}

	// Telemetry recorder: inbound readings land in InfluxDB and the
	// directory keeps the latest value per sensor.
	var writer telemetry.Writer
	if influxClient != nil {
		writer = influxClient
	}
	recorder := telemetry.NewRecorder(writer, dir, log)
	removeRecorder := session.OnMessage(recorder.Listener())
	defer removeRecorder()

	// Simulation scheduler plus the discovery loop that auto-starts
	// tasks for known sensors.
	scheduler := simulation.NewScheduler(session, log)
	defer scheduler.StopAll()

	discovery := simulation.NewDiscovery(scheduler, dir, cfg.Simulation, log)
	go discovery.Run(ctx)

	// Voice command pipeline
	dispatcher := command.NewDispatcher(dir, session, log)
	if influxClient != nil {
		dispatcher.SetEventWriter(influxClient)
	}

	var transcriber speech.Transcriber
	if cfg.Speech.APIKey != "" {
		transcriber = speech.NewClient(cfg.Speech, log)
		log.Info("speech transcription enabled", "model", cfg.Speech.Model)
	} else {
		log.Info("speech transcription disabled (no API key)")
	}

	// HTTP API
	server, err := api.New(api.Deps{
		Config:      cfg.API,
		Simulation:  cfg.Simulation,
		Logger:      log,
		Broker:      session,
		Directory:   dir,
		Scheduler:   scheduler,
		Dispatcher:  dispatcher,
		Transcriber: transcriber,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("building API server: %w", err)
	}
	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		log.Info("stopping API server")
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()
	log.Info("API server listening",
		"host", cfg.API.Host,
		"port", cfg.API.Port,
	)

	if err := healthCheck(ctx, db, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed", "mqtt_connected", session.IsConnected())

	log.Info("initialisation complete, waiting for shutdown signal")

	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")

	// Deferred Close() calls run in reverse order:
	// 1. API server
	// 2. Simulation scheduler
	// 3. Telemetry listener
	// 4. InfluxDB (if enabled)
	// 5. MQTT session
	// 6. Database

	log.Info("Domovox Core stopped")
	return nil
}

// healthCheck verifies infrastructure connections are healthy. The MQTT
// session is deliberately excluded: it may legitimately start
// disconnected and reconnects in the background.
func healthCheck(ctx context.Context, db *database.DB, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}
	return nil
}

// getConfigPath returns the configuration file path.
// Uses DOMOVOX_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("DOMOVOX_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
