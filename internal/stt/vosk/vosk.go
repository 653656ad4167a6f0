// Package vosk adapts the Vosk/Kaldi speech recognition library to the
// earshot engine interface.
//
// All recognition is delegated to the native library; this package manages
// model files, recognizer lifecycles, and result decoding. Binaries built
// with the "novosk" tag get a stub backend that fails at runtime, which
// keeps the cgo dependency optional for tooling and tests.
package vosk

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/earshot/earshot/internal/audio"
	"github.com/earshot/earshot/internal/models"
	"github.com/earshot/earshot/internal/stt"
)

// recognizer mirrors the native Kaldi recognizer API surface this package
// uses. The indirection exists so container and stream logic can be tested
// with fakes.
type recognizer interface {
	AcceptWaveform(buf []byte) int
	Result() string
	PartialResult() string
	FinalResult() string
	Reset()
	Free()
}

// model mirrors a loaded native model. Recognizers are built from it, one
// per language (plus grammar-restricted variants and per-stream instances).
type model interface {
	NewRecognizer(sampleRate float64) (recognizer, error)
	NewGrammarRecognizer(sampleRate float64, grammar string) (recognizer, error)
	Free()
}

// Config configures the Vosk engine.
type Config struct {
	// DefaultLanguage is used when a request carries no language.
	DefaultLanguage string

	// ModelPath points at an unpacked model directory for the default
	// language. Takes precedence over ModelURL and the registry.
	ModelPath string

	// ModelURL overrides the registry URL for the default language.
	ModelURL string

	// SampleRate the recognizers are constructed with (Hz).
	SampleRate int

	// PreferSmall picks small registry models over large ones.
	PreferSmall bool

	// VerbosePartials logs every changed partial transcript on streams.
	VerbosePartials bool
}

// Engine implements stt.StreamingTranscriber on top of Vosk.
type Engine struct {
	cfg       Config
	container *Container
}

// New creates the engine. No model is loaded yet; call Preload or let the
// first request load its language on demand.
func New(cfg Config, store *models.Store) (*Engine, error) {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 16000
	}
	cfg.DefaultLanguage = models.NormalizeLanguage(cfg.DefaultLanguage)
	if cfg.DefaultLanguage == "" {
		return nil, fmt.Errorf("vosk: default language is required")
	}
	return &Engine{
		cfg:       cfg,
		container: newContainer(cfg, store),
	}, nil
}

// Name returns the engine identifier.
func (e *Engine) Name() string { return "vosk" }

// Container exposes the model container for language and vocabulary
// management operations.
func (e *Engine) Container() *Container { return e.container }

// Preload loads the default language, downloading its model if necessary.
// Erroring out here fails startup fast instead of on the first request.
func (e *Engine) Preload(ctx context.Context) error {
	return e.container.LoadLanguage(ctx, e.cfg.DefaultLanguage)
}

// Transcribe runs one-shot recognition over a complete WAV payload.
func (e *Engine) Transcribe(ctx context.Context, wavData []byte, opts stt.Opts) (*stt.Result, error) {
	lang := e.resolveLanguage(opts.Language)

	pcm, err := audio.DecodeWAV(wavData)
	if err != nil {
		return nil, fmt.Errorf("vosk: %w", err)
	}
	if pcm.SampleRate != e.cfg.SampleRate {
		return nil, fmt.Errorf("vosk: audio sample rate %d does not match recognizer rate %d", pcm.SampleRate, e.cfg.SampleRate)
	}

	text, limited, err := e.container.Decode(ctx, lang, pcm.Data)
	if err != nil {
		return nil, err
	}

	return &stt.Result{
		Text:     text,
		Language: lang,
		Final:    true,
		Limited:  limited,
	}, nil
}

// OpenStream starts a streaming session with a dedicated recognizer, so
// long-lived streams don't block one-shot requests.
func (e *Engine) OpenStream(ctx context.Context, opts stt.Opts) (stt.Stream, error) {
	lang := e.resolveLanguage(opts.Language)

	rec, limited, err := e.container.NewSessionRecognizer(ctx, lang)
	if err != nil {
		return nil, err
	}

	return newStream(rec, lang, limited, e.cfg.VerbosePartials), nil
}

// Close shuts the container down, freeing every native handle.
func (e *Engine) Close() error {
	e.container.Shutdown()
	return nil
}

func (e *Engine) resolveLanguage(lang string) string {
	if lang == "" {
		return e.cfg.DefaultLanguage
	}
	return models.NormalizeLanguage(lang)
}

// textResult is the JSON shape of Result/FinalResult.
type textResult struct {
	Text string `json:"text"`
}

// partialResult is the JSON shape of PartialResult.
type partialResult struct {
	Partial string `json:"partial"`
}

func parseText(raw string) (string, error) {
	var res textResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", fmt.Errorf("vosk: decoding recognizer result: %w", err)
	}
	return res.Text, nil
}

func parsePartial(raw string) (string, error) {
	var res partialResult
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return "", fmt.Errorf("vosk: decoding partial result: %w", err)
	}
	return res.Partial, nil
}
