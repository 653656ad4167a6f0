// Package service implements the core transcription pipeline.
//
// The service receives requests from transports, runs them through the
// engine, and manages language and vocabulary state. Failures surface in
// the response rather than as transport errors — the sender always receives
// a response.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/earshot/earshot/internal/message"
	"github.com/earshot/earshot/internal/models"
	"github.com/earshot/earshot/internal/stt"
	"github.com/earshot/earshot/internal/vocab"
)

// LanguageManager is the engine-side language and vocabulary lifecycle the
// service drives. The Vosk model container implements it.
type LanguageManager interface {
	LoadLanguage(ctx context.Context, lang string) error
	UnloadLanguage(lang string)
	EnableLimitedVocabulary(ctx context.Context, words []string, lang string, permanent bool) error
	EnableFullVocabulary(lang string) error
	LoadedLanguages() []string
	Limited() bool
}

// Service wires the engine to the transports.
type Service struct {
	engine          stt.StreamingTranscriber
	langs           LanguageManager
	store           *models.Store
	defaultLanguage string
	vocabDirs       []string
}

// New creates a Service. store may be nil when model management endpoints
// aren't needed (CLI one-shot use).
func New(engine stt.StreamingTranscriber, langs LanguageManager, store *models.Store, defaultLanguage string, vocabDirs []string) *Service {
	return &Service{
		engine:          engine,
		langs:           langs,
		store:           store,
		defaultLanguage: models.NormalizeLanguage(defaultLanguage),
		vocabDirs:       vocabDirs,
	}
}

// Transcribe processes a one-shot request through the engine.
func (s *Service) Transcribe(ctx context.Context, req *message.Request) *message.TranscribeResult {
	start := time.Now()
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	logger := slog.With("request_id", req.ID, "source", req.Source)

	result := &message.TranscribeResult{RequestID: req.ID}

	if !req.HasAudio() {
		result.Error = "request has no audio"
		return result
	}

	logger.Debug("transcribing audio", "content_type", req.ContentType, "bytes", len(req.Audio), "language", req.Language)

	res, err := s.engine.Transcribe(ctx, req.Audio, stt.Opts{Language: req.Language})
	if err != nil {
		result.Error = fmt.Sprintf("transcription failed: %v", err)
		logger.Error("transcription failed", "error", err)
		return result
	}

	result.Transcript = res.Text
	result.Language = res.Language
	result.Limited = res.Limited
	result.DurationMS = time.Since(start).Milliseconds()

	logger.Info("transcription complete",
		"language", res.Language,
		"text_length", len(res.Text),
		"limited", res.Limited,
		"duration", time.Since(start))
	return result
}

// OpenStream starts a streaming session and returns its ID.
func (s *Service) OpenStream(ctx context.Context, language string) (string, stt.Stream, error) {
	stream, err := s.engine.OpenStream(ctx, stt.Opts{Language: language})
	if err != nil {
		return "", nil, err
	}
	id := uuid.NewString()
	slog.Info("stream opened", "stream_id", id, "language", language)
	return id, stream, nil
}

// Languages reports the engine's language state.
func (s *Service) Languages() message.LanguagesStatus {
	status := message.LanguagesStatus{
		Default:   s.defaultLanguage,
		Loaded:    s.langs.LoadedLanguages(),
		Available: models.Languages(),
		Limited:   s.langs.Limited(),
	}
	if s.store != nil {
		if installed, err := s.store.Installed(); err == nil {
			status.Installed = installed
		}
	}
	return status
}

// LoadLanguage loads a language on the engine, downloading when needed.
func (s *Service) LoadLanguage(ctx context.Context, lang string) error {
	return s.langs.LoadLanguage(ctx, lang)
}

// UnloadLanguage drops a loaded language.
func (s *Service) UnloadLanguage(lang string) {
	s.langs.UnloadLanguage(lang)
}

// SetVocabulary switches a language to a restricted vocabulary, taking the
// phrase list inline or from a named .voc file.
func (s *Service) SetVocabulary(ctx context.Context, lang string, req message.VocabularyRequest) error {
	phrases := req.Phrases
	if len(phrases) == 0 && req.File != "" {
		path := vocab.Resolve(req.File, s.vocabDirs)
		if path == "" {
			return fmt.Errorf("vocabulary file %q not found in configured directories", req.File)
		}
		var err error
		phrases, err = vocab.ReadFile(path)
		if err != nil {
			return err
		}
	}
	if len(phrases) == 0 {
		return fmt.Errorf("vocabulary request carries neither phrases nor a file")
	}
	return s.langs.EnableLimitedVocabulary(ctx, phrases, lang, req.Permanent)
}

// ClearVocabulary restores full-vocabulary transcription for a language.
func (s *Service) ClearVocabulary(lang string) error {
	return s.langs.EnableFullVocabulary(lang)
}
