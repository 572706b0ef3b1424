package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		// Broker session
		r.Route("/mqtt", func(r chi.Router) {
			r.Get("/topics", s.handleListTopics)
			r.Post("/subscribe", s.handleSubscribe)
			r.Delete("/subscribe", s.handleUnsubscribe)
			r.Post("/publish", s.handlePublish)
			r.Get("/stream", s.handleStream)

			// Simulation control
			r.Route("/simulate", func(r chi.Router) {
				r.Get("/", s.handleListSimulations)
				r.Post("/", s.handleStartSimulation)
				r.Delete("/{deviceID}", s.handleStopSimulation)
			})
		})

		// Inventory
		r.Route("/rooms", func(r chi.Router) {
			r.Get("/", s.handleListRooms)
			r.Post("/", s.handleCreateRoom)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetRoom)
				r.Patch("/", s.handleUpdateRoom)
				r.Delete("/", s.handleDeleteRoom)
				r.Get("/sensors", s.handleListRoomSensors)
				r.Post("/sensors", s.handleCreateSensor)
			})
		})

		r.Route("/sensors", func(r chi.Router) {
			r.Get("/", s.handleListSensors)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSensor)
				r.Patch("/", s.handleUpdateSensor)
				r.Delete("/", s.handleDeleteSensor)
			})
		})

		// Voice pipeline
		r.Route("/speech", func(r chi.Router) {
			r.Post("/command", s.handleSpeechCommand)
			r.Post("/text", s.handleTextCommand)
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"version":   s.version,
		"connected": s.broker.IsConnected(),
	})
}
