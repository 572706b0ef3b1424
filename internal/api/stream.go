package api

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/domovox/domovox-core/internal/infrastructure/mqtt"
)

// streamBufferSize bounds the per-client message backlog. A client that
// cannot keep up drops messages rather than blocking the fan-out.
const streamBufferSize = 64

// keepAliveInterval paces SSE comments so intermediaries keep the
// connection open through quiet periods.
const keepAliveInterval = 30 * time.Second

// handleStream re-emits inbound broker messages as server-sent events.
//
// Each broker message becomes one SSE record: the event type is
// "message", the id is the arrival timestamp in milliseconds, and the
// data line carries the raw payload.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeInternalError(w, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	messages := make(chan mqtt.Message, streamBufferSize)
	remove := s.broker.OnMessage(func(msg mqtt.Message) {
		select {
		case messages <- msg:
		default:
			// Slow client; drop rather than stall other listeners.
		}
	})
	defer remove()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case msg := <-messages:
			id := strconv.FormatInt(time.Now().UnixMilli(), 10)
			fmt.Fprintf(w, "id: %s\nevent: message\n", id)
			// Multi-line payloads need one data field per line to stay
			// within SSE framing.
			for _, line := range strings.Split(msg.Payload, "\n") {
				fmt.Fprintf(w, "data: %s\n", line)
			}
			fmt.Fprint(w, "\n")
			flusher.Flush()
		}
	}
}
