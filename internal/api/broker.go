package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/domovox/domovox-core/internal/infrastructure/mqtt"
)

// topicRequest is the body for subscribe/unsubscribe calls.
type topicRequest struct {
	Topic string `json:"topic"`
}

// publishRequest is the body for publish calls. Payload is raw JSON and
// passes to the broker as-is.
type publishRequest struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// handleListTopics returns the current subscription set.
func (s *Server) handleListTopics(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"topics":    s.broker.Subscriptions().Topics(),
		"connected": s.broker.IsConnected(),
	})
}

// handleSubscribe subscribes the session to a topic.
//
// While the broker is down the session would only record the topic for
// later; the request is rejected instead so the caller knows the
// subscription is not live.
func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		writeBadRequest(w, "topic is required")
		return
	}

	if !s.broker.IsConnected() {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavail, "broker not connected")
		return
	}

	if err := s.broker.Subscribe(req.Topic); err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"topic": req.Topic, "status": "subscribed"})
}

// handleUnsubscribe drops a subscription.
func (s *Server) handleUnsubscribe(w http.ResponseWriter, r *http.Request) {
	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		writeBadRequest(w, "topic is required")
		return
	}

	if err := s.broker.Unsubscribe(req.Topic); err != nil {
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"topic": req.Topic, "status": "unsubscribed"})
}

// handlePublish publishes a payload to a topic.
func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Topic == "" {
		writeBadRequest(w, "topic is required")
		return
	}
	if len(req.Payload) == 0 {
		writeBadRequest(w, "payload is required")
		return
	}

	if err := s.broker.PublishJSON(req.Topic, req.Payload); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			writeError(w, http.StatusServiceUnavailable, ErrCodeUnavail, "broker not connected")
			return
		}
		writeInternalError(w, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"topic": req.Topic, "status": "published"})
}
