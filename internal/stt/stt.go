// Package stt defines the interface earshot uses to talk to speech
// recognition engines.
//
// Engines do the actual recognition; earshot is glue. Two modes exist:
// one-shot transcription of a complete WAV payload, and streaming, where
// raw PCM chunks are fed in and partial/final results come back as they
// are decoded.
package stt

import (
	"context"
	"errors"
)

// Result is a single recognition result.
type Result struct {
	// Text is the recognized text. For partials it is the best hypothesis
	// so far and may shrink or change on the next result.
	Text string

	// Language is the language the recognizer was run with.
	Language string

	// Final marks the result as final for the current utterance.
	Final bool

	// Limited reports whether a restricted-vocabulary recognizer produced
	// the result.
	Limited bool
}

// Opts controls a transcription or stream.
type Opts struct {
	// Language overrides the engine's default language (BCP-47 or
	// ISO-639-1). The engine loads the language on demand.
	Language string
}

// Transcriber is the one-shot transcription interface.
type Transcriber interface {
	// Name returns the engine identifier (e.g., "vosk").
	Name() string

	// Transcribe decodes a complete WAV payload and returns the final text.
	Transcribe(ctx context.Context, wavData []byte, opts Opts) (*Result, error)

	// Close releases all engine resources.
	Close() error
}

// StreamingTranscriber is implemented by engines that support incremental
// decoding with partial results.
type StreamingTranscriber interface {
	Transcriber

	// OpenStream starts a streaming session for the given options.
	OpenStream(ctx context.Context, opts Opts) (Stream, error)
}

// Stream is a single streaming recognition session. Feed and Finalize must
// not be called concurrently; Results may be consumed from another goroutine.
type Stream interface {
	// Feed queues a chunk of raw PCM16 mono audio for decoding.
	Feed(chunk []byte) error

	// Results returns the channel partial and segment-final results are
	// delivered on. The channel is closed when the stream is closed.
	Results() <-chan Result

	// Finalize flushes buffered audio, returns the final transcript for the
	// session so far, and resets the session for further use.
	Finalize(ctx context.Context) (string, error)

	// Close tears the session down and releases its recognizer.
	Close() error
}

var (
	// ErrModelNotFound means no model path or download URL could be
	// resolved. Models can be fetched from https://alphacephei.com/vosk/models.
	ErrModelNotFound = errors.New("no valid model path or url: download a model from https://alphacephei.com/vosk/models")

	// ErrLanguageUnavailable means the requested language has no configured
	// or downloadable default model.
	ErrLanguageUnavailable = errors.New("no default model available for language")

	// ErrEngineUnavailable means the binary was built without the native
	// recognition library.
	ErrEngineUnavailable = errors.New("recognition engine not compiled in")

	// ErrStreamClosed is returned when feeding a closed stream.
	ErrStreamClosed = errors.New("stream is closed")
)
