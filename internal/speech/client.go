package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/domovox/domovox-core/internal/infrastructure/config"
	"github.com/domovox/domovox-core/internal/infrastructure/logging"
)

// Sentinel errors for transcription.
var (
	// ErrUnsupportedFormat is returned for audio extensions the
	// provider cannot decode.
	ErrUnsupportedFormat = errors.New("speech: unsupported audio format")

	// ErrTranscriptionFailed wraps provider-side failures.
	ErrTranscriptionFailed = errors.New("speech: transcription failed")
)

// supportedExtensions lists the audio containers the provider accepts.
var supportedExtensions = map[string]struct{}{
	".mp3":  {},
	".wav":  {},
	".flac": {},
	".m4a":  {},
}

const (
	requestTimeout = 30 * time.Second

	// maxAudioSize caps uploads at 25MB, the provider's own limit.
	maxAudioSize = 25 << 20
)

// Transcriber converts audio bytes into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, extension string) (string, error)
}

// Client is a Transcriber backed by an OpenAI-compatible HTTP endpoint.
type Client struct {
	cfg        config.SpeechConfig
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates a transcription client.
func NewClient(cfg config.SpeechConfig, logger *logging.Logger) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// transcriptionResponse is the JSON body the endpoint returns.
type transcriptionResponse struct {
	Text string `json:"text"`
}

// Transcribe uploads the audio and returns the transcribed text.
//
// The extension (with leading dot, e.g. ".wav") selects the container
// format; unsupported formats fail with ErrUnsupportedFormat before
// any network traffic.
func (c *Client) Transcribe(ctx context.Context, audio []byte, extension string) (string, error) {
	extension = strings.ToLower(extension)
	if _, ok := supportedExtensions[extension]; !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, extension)
	}
	if len(audio) == 0 {
		return "", fmt.Errorf("%w: empty audio", ErrTranscriptionFailed)
	}
	if len(audio) > maxAudioSize {
		return "", fmt.Errorf("%w: audio exceeds %d bytes", ErrTranscriptionFailed, maxAudioSize)
	}

	c.logger.Debug("transcribing audio", "bytes", len(audio), "format", extension)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "audio"+extension)
	if err != nil {
		return "", fmt.Errorf("%w: building request: %w", ErrTranscriptionFailed, err)
	}
	if _, err := part.Write(audio); err != nil {
		return "", fmt.Errorf("%w: building request: %w", ErrTranscriptionFailed, err)
	}
	_ = writer.WriteField("model", c.cfg.Model)
	_ = writer.WriteField("response_format", "json")
	_ = writer.WriteField("temperature", "0")
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("%w: building request: %w", ErrTranscriptionFailed, err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTranscriptionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("%w: status %d: %s", ErrTranscriptionFailed, resp.StatusCode, detail)
	}

	var result transcriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("%w: decoding response: %w", ErrTranscriptionFailed, err)
	}

	text := strings.ToLower(strings.TrimSpace(result.Text))
	c.logger.Debug("transcription complete", "chars", len(text))
	return text, nil
}
