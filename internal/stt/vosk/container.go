package vosk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"

	"github.com/earshot/earshot/internal/models"
	"github.com/earshot/earshot/internal/stt"
)

// Container owns the per-language recognizer cache.
//
// For every loaded language it holds the native model plus a full-vocabulary
// recognizer, and optionally a grammar-restricted one. Limited mode is a
// container-wide switch: while on, requests for a language that has a
// restricted recognizer use it instead of the full one.
//
// Native recognizers are not safe for concurrent use, so the container lock
// is held for the duration of a decode. Streams get dedicated recognizers
// and are unaffected.
type Container struct {
	cfg   Config
	store *models.Store

	mu           sync.Mutex
	models       map[string]model
	engines      map[string]recognizer
	limitedRecs  map[string]recognizer
	limitedWords map[string][]string
	limitedMode  bool
}

// openModel is swapped out in tests; builds pick the native or stub backend.
var openModel = openNativeModel

func newContainer(cfg Config, store *models.Store) *Container {
	return &Container{
		cfg:          cfg,
		store:        store,
		models:       make(map[string]model),
		engines:      make(map[string]recognizer),
		limitedRecs:  make(map[string]recognizer),
		limitedWords: make(map[string][]string),
	}
}

// LoadLanguage makes sure a recognizer exists for lang, resolving and
// downloading the model if needed. Loading an already-loaded language is a
// no-op.
func (c *Container) LoadLanguage(ctx context.Context, lang string) error {
	lang = models.NormalizeLanguage(lang)

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := c.loadLocked(ctx, lang)
	return err
}

// loadLocked loads lang's model and full recognizer. Caller holds c.mu.
func (c *Container) loadLocked(ctx context.Context, lang string) (model, error) {
	if m, ok := c.models[lang]; ok {
		return m, nil
	}

	path, err := c.resolveModelPath(ctx, lang)
	if err != nil {
		return nil, err
	}

	slog.Info("loading language model", "language", lang, "path", path)

	m, err := openModel(path)
	if err != nil {
		return nil, fmt.Errorf("loading model %s: %w", path, err)
	}

	rec, err := m.NewRecognizer(float64(c.cfg.SampleRate))
	if err != nil {
		m.Free()
		return nil, fmt.Errorf("creating recognizer for %s: %w", lang, err)
	}

	c.models[lang] = m
	c.engines[lang] = rec
	return m, nil
}

// resolveModelPath finds the model directory for a language: the configured
// path, then the configured URL, then the registry — downloading when needed.
func (c *Container) resolveModelPath(ctx context.Context, lang string) (string, error) {
	if lang == c.cfg.DefaultLanguage {
		if c.cfg.ModelPath != "" {
			info, err := os.Stat(c.cfg.ModelPath)
			if err != nil || !info.IsDir() {
				return "", fmt.Errorf("model_path %s: %w", c.cfg.ModelPath, stt.ErrModelNotFound)
			}
			return c.cfg.ModelPath, nil
		}
		if c.cfg.ModelURL != "" {
			return c.store.Ensure(ctx, c.cfg.ModelURL, nil)
		}
	}

	url := models.URLForLanguage(lang, c.cfg.PreferSmall)
	if url == "" {
		return "", fmt.Errorf("%w: %s", stt.ErrLanguageUnavailable, lang)
	}
	return c.store.Ensure(ctx, url, nil)
}

// UnloadLanguage drops a language's recognizers and model, freeing the
// native handles. Unloading a language that isn't loaded is a no-op.
func (c *Container) UnloadLanguage(lang string) {
	lang = models.NormalizeLanguage(lang)

	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.engines[lang]; ok {
		rec.Free()
		delete(c.engines, lang)
	}
	if rec, ok := c.limitedRecs[lang]; ok {
		rec.Free()
		delete(c.limitedRecs, lang)
	}
	delete(c.limitedWords, lang)
	if m, ok := c.models[lang]; ok {
		m.Free()
		delete(c.models, lang)
	}
	slog.Info("unloaded language", "language", lang)
}

// EnableLimitedVocabulary builds a grammar-restricted recognizer for lang
// from the given phrase list and turns limited mode on. With permanent set,
// the full-vocabulary recognizer is released as well; it is rebuilt by
// EnableFullVocabulary.
func (c *Container) EnableLimitedVocabulary(ctx context.Context, words []string, lang string, permanent bool) error {
	if len(words) == 0 {
		return fmt.Errorf("limited vocabulary requires at least one phrase")
	}
	lang = models.NormalizeLanguage(lang)

	grammar, err := json.Marshal(words)
	if err != nil {
		return fmt.Errorf("encoding grammar: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.loadLocked(ctx, lang)
	if err != nil {
		return err
	}

	rec, err := m.NewGrammarRecognizer(float64(c.cfg.SampleRate), string(grammar))
	if err != nil {
		return fmt.Errorf("creating grammar recognizer for %s: %w", lang, err)
	}

	if old, ok := c.limitedRecs[lang]; ok {
		old.Free()
	}
	c.limitedRecs[lang] = rec
	c.limitedWords[lang] = append([]string(nil), words...)

	if permanent {
		if full, ok := c.engines[lang]; ok {
			full.Free()
			delete(c.engines, lang)
		}
	}

	c.limitedMode = true
	slog.Info("limited vocabulary enabled", "language", lang, "phrases", len(words), "permanent", permanent)
	return nil
}

// EnableFullVocabulary restores default transcription for lang: the
// restricted recognizer is dropped and the full one rebuilt if it was
// released. Limited mode turns off once no language is restricted.
func (c *Container) EnableFullVocabulary(lang string) error {
	lang = models.NormalizeLanguage(lang)

	c.mu.Lock()
	defer c.mu.Unlock()

	if rec, ok := c.limitedRecs[lang]; ok {
		rec.Free()
		delete(c.limitedRecs, lang)
	}
	delete(c.limitedWords, lang)

	if _, ok := c.engines[lang]; !ok {
		if m, loaded := c.models[lang]; loaded {
			rec, err := m.NewRecognizer(float64(c.cfg.SampleRate))
			if err != nil {
				return fmt.Errorf("rebuilding recognizer for %s: %w", lang, err)
			}
			c.engines[lang] = rec
		}
	}

	if len(c.limitedRecs) == 0 {
		c.limitedMode = false
	}
	slog.Info("full vocabulary restored", "language", lang)
	return nil
}

// Decode feeds PCM to lang's recognizer and returns the final text. The
// language is loaded on demand. The second return reports whether a
// restricted recognizer was used.
func (c *Container) Decode(ctx context.Context, lang string, pcm []byte) (string, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, err := c.loadLocked(ctx, lang); err != nil {
		return "", false, err
	}

	rec, limited := c.selectLocked(lang)
	if rec == nil {
		return "", false, fmt.Errorf("%w: %s", stt.ErrLanguageUnavailable, lang)
	}

	rec.AcceptWaveform(pcm)
	raw := rec.FinalResult()
	rec.Reset()

	text, err := parseText(raw)
	if err != nil {
		return "", limited, err
	}
	return text, limited, nil
}

// selectLocked picks the recognizer for a language: the restricted one in
// limited mode when present, otherwise the full one, otherwise whatever
// restricted recognizer remains after a permanent switch.
func (c *Container) selectLocked(lang string) (recognizer, bool) {
	if c.limitedMode {
		if rec, ok := c.limitedRecs[lang]; ok {
			return rec, true
		}
	}
	if rec, ok := c.engines[lang]; ok {
		return rec, false
	}
	if rec, ok := c.limitedRecs[lang]; ok {
		return rec, true
	}
	return nil, false
}

// NewSessionRecognizer builds a dedicated recognizer for a streaming
// session, honoring limited mode. The caller owns the returned recognizer
// and must Free it (streams do this on Close).
func (c *Container) NewSessionRecognizer(ctx context.Context, lang string) (recognizer, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, err := c.loadLocked(ctx, lang)
	if err != nil {
		return nil, false, err
	}

	if c.limitedMode {
		if words, ok := c.limitedWords[lang]; ok {
			grammar, err := json.Marshal(words)
			if err != nil {
				return nil, false, fmt.Errorf("encoding grammar: %w", err)
			}
			rec, err := m.NewGrammarRecognizer(float64(c.cfg.SampleRate), string(grammar))
			if err != nil {
				return nil, false, err
			}
			return rec, true, nil
		}
	}

	rec, err := m.NewRecognizer(float64(c.cfg.SampleRate))
	if err != nil {
		return nil, false, err
	}
	return rec, false, nil
}

// LoadedLanguages returns the currently loaded language tags, sorted.
func (c *Container) LoadedLanguages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	langs := make([]string, 0, len(c.models))
	for lang := range c.models {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	return langs
}

// Limited reports whether limited-vocabulary mode is on.
func (c *Container) Limited() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.limitedMode
}

// Shutdown unloads every language and frees all native handles.
func (c *Container) Shutdown() {
	c.mu.Lock()
	langs := make([]string, 0, len(c.models))
	for lang := range c.models {
		langs = append(langs, lang)
	}
	c.mu.Unlock()

	for _, lang := range langs {
		c.UnloadLanguage(lang)
	}
}
