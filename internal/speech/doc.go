// Package speech transcribes voice recordings into command text.
//
// The Client talks to an OpenAI-compatible transcription endpoint
// (Groq's Whisper deployment in the default configuration) via
// multipart upload. Only common audio container formats are accepted;
// anything else is rejected before the network round-trip.
package speech
