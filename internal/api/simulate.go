package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/domovox/domovox-core/internal/simulation"
)

// simulateRequest is the body for starting a simulation.
type simulateRequest struct {
	DeviceID string `json:"deviceId"`
	Topic    string `json:"topic"`
	// Interval in seconds; the configured default applies when zero.
	Interval int    `json:"interval,omitempty"`
	Type     string `json:"type,omitempty"`
}

// handleListSimulations returns the running simulation tasks.
func (s *Server) handleListSimulations(w http.ResponseWriter, _ *http.Request) {
	tasks := s.scheduler.List()
	out := make([]map[string]any, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, map[string]any{
			"deviceId": t.DeviceID,
			"topic":    t.Topic,
			"interval": int(t.Interval / time.Second),
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"simulations": out})
}

// handleStartSimulation starts (or replaces) a simulation task.
//
// The topic may be omitted when the device ID names a known sensor; its
// stored topic and type are used.
func (s *Server) handleStartSimulation(w http.ResponseWriter, r *http.Request) {
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DeviceID == "" {
		writeBadRequest(w, "deviceId is required")
		return
	}

	if req.Topic == "" {
		sensor, err := s.directory.GetSensor(r.Context(), req.DeviceID)
		if err != nil {
			writeBadRequest(w, "topic is required for devices not in the inventory")
			return
		}
		req.Topic = sensor.Topic
		if req.Type == "" {
			req.Type = sensor.Type
		}
	}

	interval := time.Duration(req.Interval) * time.Second
	if req.Interval <= 0 {
		interval = s.simCfg.DefaultIntervalDuration()
	}

	err := s.scheduler.Start(req.DeviceID, req.Topic, interval, simulation.GeneratorFor(req.Type))
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"deviceId": req.DeviceID,
		"topic":    req.Topic,
		"interval": int(interval / time.Second),
		"status":   "running",
	})
}

// handleStopSimulation stops the task for one device.
func (s *Server) handleStopSimulation(w http.ResponseWriter, r *http.Request) {
	deviceID := chi.URLParam(r, "deviceID")
	if !s.scheduler.Stop(deviceID) {
		writeNotFound(w, "no simulation running for device "+deviceID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"deviceId": deviceID, "status": "stopped"})
}
