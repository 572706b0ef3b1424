// Package api provides the HTTP REST API and event stream for Domovox Core.
//
// It exposes broker session operations (subscribe, publish), simulation
// control, the room and sensor inventory, voice command processing, and
// a server-sent-events stream of inbound broker messages.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/domovox/domovox-core/internal/command"
	"github.com/domovox/domovox-core/internal/directory"
	"github.com/domovox/domovox-core/internal/infrastructure/config"
	"github.com/domovox/domovox-core/internal/infrastructure/logging"
	"github.com/domovox/domovox-core/internal/infrastructure/mqtt"
	"github.com/domovox/domovox-core/internal/simulation"
	"github.com/domovox/domovox-core/internal/speech"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Broker is the slice of the session the API exposes upward.
type Broker interface {
	Subscribe(topic string) error
	Unsubscribe(topic string) error
	PublishJSON(topic string, v any) error
	OnMessage(listener mqtt.Listener) func()
	IsConnected() bool
	Subscriptions() *mqtt.Registry
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	Simulation  config.SimulationConfig
	Logger      *logging.Logger
	Broker      Broker
	Directory   *directory.Service
	Scheduler   *simulation.Scheduler
	Dispatcher  *command.Dispatcher
	Transcriber speech.Transcriber
	Version     string
}

// Server is the HTTP API server for Domovox Core.
//
// It manages the HTTP listener, routes, and middleware. The server is
// created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	simCfg      config.SimulationConfig
	logger      *logging.Logger
	broker      Broker
	directory   *directory.Service
	scheduler   *simulation.Scheduler
	dispatcher  *command.Dispatcher
	transcriber speech.Transcriber
	version     string
	server      *http.Server
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Broker == nil {
		return nil, fmt.Errorf("broker session is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("directory service is required")
	}

	return &Server{
		cfg:         deps.Config,
		simCfg:      deps.Simulation,
		logger:      deps.Logger,
		broker:      deps.Broker,
		directory:   deps.Directory,
		scheduler:   deps.Scheduler,
		dispatcher:  deps.Dispatcher,
		transcriber: deps.Transcriber,
		version:     deps.Version,
	}, nil
}

// Start begins listening for HTTP connections in a background goroutine.
// The server can be stopped with Close().
func (s *Server) Start(_ context.Context) error {
	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		// No WriteTimeout: the SSE stream holds its response open
		// indefinitely; non-streaming handlers are quick.
		IdleTimeout: time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		s.logger.Info("API server starting", "address", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Close gracefully shuts down the API server, waiting up to 10 seconds
// for in-flight requests to complete.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
