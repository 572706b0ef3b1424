package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/domovox/domovox-core/internal/directory"
)

// roomRequest is the body for creating or updating a room.
type roomRequest struct {
	Name    string `json:"name"`
	Topic   string `json:"topic,omitempty"`
	Picture string `json:"picture,omitempty"`
}

// sensorRequest is the body for creating or updating a sensor.
type sensorRequest struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// handleListRooms returns all rooms.
func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := s.directory.ListRooms(r.Context())
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"rooms": rooms})
}

// handleCreateRoom creates a room.
func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	room, err := s.directory.CreateRoom(r.Context(), req.Name, req.Topic, req.Picture)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, room)
}

// handleGetRoom returns one room.
func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.directory.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleUpdateRoom updates a room's name, topic, or picture. A topic
// change re-derives every sensor topic in the room.
func (s *Server) handleUpdateRoom(w http.ResponseWriter, r *http.Request) {
	room, err := s.directory.GetRoom(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDirectoryError(w, err)
		return
	}

	var req roomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Name != "" {
		room.Name = req.Name
	}
	if req.Topic != "" {
		room.Topic = req.Topic
	}
	if req.Picture != "" {
		room.Picture = req.Picture
	}

	if err := s.directory.UpdateRoom(r.Context(), room); err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, room)
}

// handleDeleteRoom removes a room and its sensors.
func (s *Server) handleDeleteRoom(w http.ResponseWriter, r *http.Request) {
	if err := s.directory.DeleteRoom(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDirectoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleListRoomSensors returns the sensors in one room.
func (s *Server) handleListRoomSensors(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "id")
	if _, err := s.directory.GetRoom(r.Context(), roomID); err != nil {
		writeDirectoryError(w, err)
		return
	}

	sensors, err := s.directory.ListSensors(r.Context(), roomID)
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sensors": sensors})
}

// handleCreateSensor creates a sensor in a room and subscribes its topic.
func (s *Server) handleCreateSensor(w http.ResponseWriter, r *http.Request) {
	var req sensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	sensor, err := s.directory.CreateSensor(r.Context(), chi.URLParam(r, "id"), req.Name, req.Type)
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, sensor)
}

// handleListSensors returns all sensors across rooms.
func (s *Server) handleListSensors(w http.ResponseWriter, r *http.Request) {
	sensorType := r.URL.Query().Get("type")

	var (
		sensors []directory.Sensor
		err     error
	)
	if sensorType != "" {
		sensors, err = s.directory.ListSensorsByType(r.Context(), sensorType)
	} else {
		sensors, err = s.directory.ListSensors(r.Context(), "")
	}
	if err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sensors": sensors})
}

// handleGetSensor returns one sensor.
func (s *Server) handleGetSensor(w http.ResponseWriter, r *http.Request) {
	sensor, err := s.directory.GetSensor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sensor)
}

// handleUpdateSensor updates a sensor's name or type, moving its broker
// subscription when the derived topic changes.
func (s *Server) handleUpdateSensor(w http.ResponseWriter, r *http.Request) {
	sensor, err := s.directory.GetSensor(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDirectoryError(w, err)
		return
	}

	var req sensorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Name != "" {
		sensor.Name = req.Name
	}
	if req.Type != "" {
		sensor.Type = req.Type
	}

	if err := s.directory.UpdateSensor(r.Context(), sensor); err != nil {
		writeDirectoryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sensor)
}

// handleDeleteSensor removes a sensor and drops its subscription.
func (s *Server) handleDeleteSensor(w http.ResponseWriter, r *http.Request) {
	if err := s.directory.DeleteSensor(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeDirectoryError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeDirectoryError maps inventory errors onto HTTP statuses.
func writeDirectoryError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, directory.ErrRoomNotFound),
		errors.Is(err, directory.ErrSensorNotFound):
		writeNotFound(w, err.Error())
	case errors.Is(err, directory.ErrDuplicateTopic):
		writeConflict(w, err.Error())
	case errors.Is(err, directory.ErrInvalidInput):
		writeBadRequest(w, err.Error())
	default:
		writeInternalError(w, err.Error())
	}
}
