// Package transport defines the interface for pluggable request transports.
//
// Each transport (gRPC, HTTP/WebSocket, MQTT) implements this interface and
// serves the same Service contract. The service doesn't care how requests
// arrive — it only works with decoded messages.
package transport

import (
	"context"

	"github.com/earshot/earshot/internal/message"
	"github.com/earshot/earshot/internal/stt"
)

// Service is the surface transports expose to clients. It is implemented by
// the service package; tests substitute fakes.
type Service interface {
	// Transcribe runs a one-shot transcription. Failures are reported in
	// the result's Error field — the caller always receives a response.
	Transcribe(ctx context.Context, req *message.Request) *message.TranscribeResult

	// OpenStream starts a streaming session and returns its ID.
	OpenStream(ctx context.Context, language string) (string, stt.Stream, error)

	// Languages reports the engine's language state.
	Languages() message.LanguagesStatus

	// LoadLanguage loads a language, downloading its model when needed.
	LoadLanguage(ctx context.Context, lang string) error

	// UnloadLanguage drops a loaded language.
	UnloadLanguage(lang string)

	// SetVocabulary switches a language to a restricted vocabulary.
	SetVocabulary(ctx context.Context, lang string, req message.VocabularyRequest) error

	// ClearVocabulary restores full-vocabulary transcription for a language.
	ClearVocabulary(lang string) error
}

// Transport is the interface that every transport adapter must implement.
type Transport interface {
	// Name returns the transport identifier (e.g., "grpc", "http", "mqtt").
	Name() string

	// Listen starts accepting requests and serves them from the service.
	// It blocks until the context is cancelled.
	Listen(ctx context.Context, svc Service) error

	// Close gracefully shuts down the transport, draining in-flight work.
	Close() error
}
