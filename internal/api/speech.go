package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/domovox/domovox-core/internal/speech"
)

// maxAudioUploadSize caps voice command uploads (25 MB, the provider limit).
const maxAudioUploadSize = 25 << 20

// textCommandRequest is the body for already-transcribed commands.
type textCommandRequest struct {
	Text string `json:"text"`
}

// handleSpeechCommand accepts a multipart audio upload, transcribes it,
// and runs the result through the command pipeline.
func (s *Server) handleSpeechCommand(w http.ResponseWriter, r *http.Request) {
	if s.transcriber == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeUnavail, "transcription not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxAudioUploadSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		writeBadRequest(w, "file upload is required")
		return
	}
	defer file.Close()

	audio, err := io.ReadAll(file)
	if err != nil {
		writeBadRequest(w, "reading upload: "+err.Error())
		return
	}

	extension := strings.ToLower(filepath.Ext(header.Filename))
	text, err := s.transcriber.Transcribe(r.Context(), audio, extension)
	if err != nil {
		if errors.Is(err, speech.ErrUnsupportedFormat) {
			writeBadRequest(w, err.Error())
			return
		}
		writeInternalError(w, err.Error())
		return
	}

	outcome := s.dispatcher.Process(r.Context(), text)
	writeJSON(w, http.StatusOK, map[string]any{
		"transcription": text,
		"outcome":       outcome,
	})
}

// handleTextCommand runs an already-transcribed command through the
// pipeline. Useful for development and non-voice clients.
func (s *Server) handleTextCommand(w http.ResponseWriter, r *http.Request) {
	var req textCommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Text) == "" {
		writeBadRequest(w, "text is required")
		return
	}

	outcome := s.dispatcher.Process(r.Context(), req.Text)
	writeJSON(w, http.StatusOK, map[string]any{"outcome": outcome})
}
