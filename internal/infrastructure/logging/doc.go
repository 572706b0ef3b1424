// Package logging provides structured logging for Domovox Core.
//
// It wraps the standard log/slog package so all components log with the
// same handler, level filtering, and default fields (service, version).
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("starting service", "port", 8080)
//	logger.Error("failed to connect", "error", err)
//
// Never log secrets: broker passwords and transcription API keys stay out
// of log fields.
package logging
