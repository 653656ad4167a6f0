// Package message defines the core data types flowing through the earshot pipeline.
package message

import "time"

// Request represents an incoming transcription request from any transport.
type Request struct {
	// ID is a unique identifier for this request (UUID).
	ID string `json:"id"`

	// Source identifies the sender (e.g., "satellite-kitchen", "phone-alice").
	Source string `json:"source,omitempty"`

	// Audio is the audio payload. One-shot requests carry a full WAV file;
	// streaming transports deliver raw PCM chunks instead and leave this nil.
	Audio []byte `json:"audio,omitempty"`

	// ContentType is the MIME type of the audio (e.g., "audio/wav").
	ContentType string `json:"content_type,omitempty"`

	// Language is an optional per-request language override (BCP-47 or
	// ISO-639-1, e.g. "en-US", "de"). Empty means the configured default.
	Language string `json:"language,omitempty"`

	// Timestamp is when the request was received by earshot.
	Timestamp time.Time `json:"timestamp"`
}

// HasAudio returns true if the request contains an audio payload.
func (r *Request) HasAudio() bool {
	return len(r.Audio) > 0
}

// TranscribeResult is the outcome of a one-shot transcription.
type TranscribeResult struct {
	// RequestID is the original request ID.
	RequestID string `json:"request_id"`

	// Transcript is the recognized text. Empty when nothing was recognized.
	Transcript string `json:"transcript"`

	// Language is the language the recognizer was run with.
	Language string `json:"language,omitempty"`

	// Limited reports whether a restricted-vocabulary recognizer produced
	// the transcript.
	Limited bool `json:"limited,omitempty"`

	// DurationMS is the wall-clock decoding time in milliseconds.
	DurationMS int64 `json:"duration_ms"`

	// Error is set if processing failed at any stage.
	Error string `json:"error,omitempty"`
}

// LanguagesStatus describes the engine's language state.
type LanguagesStatus struct {
	// Default is the configured default language.
	Default string `json:"default"`

	// Loaded lists languages with a live recognizer.
	Loaded []string `json:"loaded"`

	// Installed lists model names present in the on-disk store.
	Installed []string `json:"installed"`

	// Available lists languages with a known download URL.
	Available []string `json:"available"`

	// Limited reports whether limited-vocabulary mode is on.
	Limited bool `json:"limited"`
}

// VocabularyRequest asks for a restricted-vocabulary recognizer. Either an
// inline phrase list or the name of a .voc file must be given.
type VocabularyRequest struct {
	// Phrases is the inline phrase list.
	Phrases []string `json:"phrases,omitempty"`

	// File names a .voc vocabulary file resolved against the configured
	// vocabulary directories.
	File string `json:"file,omitempty"`

	// Permanent releases the full-vocabulary recognizer for the language
	// instead of keeping both.
	Permanent bool `json:"permanent,omitempty"`
}

// StreamEvent is a single partial or final result emitted on a streaming
// session. Partials for the same utterance supersede each other; a final
// event closes the utterance.
type StreamEvent struct {
	// StreamID identifies the streaming session (UUID).
	StreamID string `json:"stream_id"`

	// Text is the partial or final transcript.
	Text string `json:"text"`

	// Final marks the event as a final result rather than a partial.
	Final bool `json:"final"`

	// Language is the language the recognizer was run with.
	Language string `json:"language,omitempty"`

	// Error is set when the stream failed; the stream is closed afterwards.
	Error string `json:"error,omitempty"`
}
