package vosk

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"testing"

	"github.com/earshot/earshot/internal/models"
	"github.com/earshot/earshot/internal/stt"
)

// fakeRec scripts recognizer behavior: each AcceptWaveform call advances to
// the next step, whose payload feeds Result/PartialResult.
type fakeRec struct {
	mu      sync.Mutex
	steps   []recStep
	idx     int
	current recStep
	final   string
	freed   bool
	resets  int
	fed     int
}

type recStep struct {
	accept  int
	result  string
	partial string
}

func (r *fakeRec) AcceptWaveform(buf []byte) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fed++
	if r.idx < len(r.steps) {
		r.current = r.steps[r.idx]
		r.idx++
	} else {
		r.current = recStep{partial: `{"partial": ""}`}
	}
	return r.current.accept
}

func (r *fakeRec) Result() string        { r.mu.Lock(); defer r.mu.Unlock(); return r.current.result }
func (r *fakeRec) PartialResult() string { r.mu.Lock(); defer r.mu.Unlock(); return r.current.partial }
func (r *fakeRec) FinalResult() string   { r.mu.Lock(); defer r.mu.Unlock(); return r.final }
func (r *fakeRec) Reset()                { r.mu.Lock(); defer r.mu.Unlock(); r.resets++ }
func (r *fakeRec) Free()                 { r.mu.Lock(); defer r.mu.Unlock(); r.freed = true }

func (r *fakeRec) isFreed() bool { r.mu.Lock(); defer r.mu.Unlock(); return r.freed }

// fakeModel hands out fakeRecs and records the grammars it was asked for.
type fakeModel struct {
	path     string
	full     []*fakeRec
	limited  []*fakeRec
	grammars []string
	freed    bool

	nextFinal string // FinalResult payload for recognizers built from here
}

func (m *fakeModel) NewRecognizer(sampleRate float64) (recognizer, error) {
	rec := &fakeRec{final: m.nextFinal}
	m.full = append(m.full, rec)
	return rec, nil
}

func (m *fakeModel) NewGrammarRecognizer(sampleRate float64, grammar string) (recognizer, error) {
	rec := &fakeRec{final: m.nextFinal}
	m.limited = append(m.limited, rec)
	m.grammars = append(m.grammars, grammar)
	return rec, nil
}

func (m *fakeModel) Free() { m.freed = true }

// installFakeBackend swaps the model loader for one that records opened
// paths and returns fakeModels.
func installFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()
	b := &fakeBackend{final: `{"text": "hello world"}`}
	orig := openModel
	openModel = b.open
	t.Cleanup(func() { openModel = orig })
	return b
}

type fakeBackend struct {
	opened []string
	models []*fakeModel
	final  string
	err    error
}

func (b *fakeBackend) open(path string) (model, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.opened = append(b.opened, path)
	m := &fakeModel{path: path, nextFinal: b.final}
	b.models = append(b.models, m)
	return m, nil
}

func testContainer(t *testing.T, cfg Config) *Container {
	t.Helper()
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 16000
	}
	store, err := models.NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	return newContainer(cfg, store)
}

func TestLoadLanguageFromConfiguredPath(t *testing.T) {
	backend := installFakeBackend(t)
	modelDir := t.TempDir()

	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: modelDir})
	ctx := context.Background()

	if err := c.LoadLanguage(ctx, "en"); err != nil {
		t.Fatalf("LoadLanguage: %v", err)
	}
	if len(backend.opened) != 1 || backend.opened[0] != modelDir {
		t.Errorf("opened %v, want [%s]", backend.opened, modelDir)
	}
	if got := c.LoadedLanguages(); !reflect.DeepEqual(got, []string{"en"}) {
		t.Errorf("LoadedLanguages() = %v", got)
	}

	// Loading again must be a no-op.
	if err := c.LoadLanguage(ctx, "en"); err != nil {
		t.Fatal(err)
	}
	if len(backend.opened) != 1 {
		t.Errorf("model opened %d times, want 1", len(backend.opened))
	}
}

func TestLoadLanguageMissingModelPath(t *testing.T) {
	installFakeBackend(t)
	c := testContainer(t, Config{
		DefaultLanguage: "en",
		ModelPath:       filepath.Join(t.TempDir(), "nope"),
	})

	err := c.LoadLanguage(context.Background(), "en")
	if !errors.Is(err, stt.ErrModelNotFound) {
		t.Fatalf("err = %v, want ErrModelNotFound", err)
	}
}

func TestLoadLanguageUnknown(t *testing.T) {
	installFakeBackend(t)
	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: t.TempDir()})

	err := c.LoadLanguage(context.Background(), "zz")
	if !errors.Is(err, stt.ErrLanguageUnavailable) {
		t.Fatalf("err = %v, want ErrLanguageUnavailable", err)
	}
}

func TestLoadLanguageFromStore(t *testing.T) {
	backend := installFakeBackend(t)
	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: t.TempDir()})

	// Pre-install the German model so no download happens.
	name := models.NameFromURL(models.URLForLanguage("de", true))
	installed := c.store.Path(name)
	if err := os.MkdirAll(installed, 0o755); err != nil {
		t.Fatal(err)
	}

	if err := c.LoadLanguage(context.Background(), "de-DE"); err != nil {
		t.Fatalf("LoadLanguage: %v", err)
	}
	if got := backend.opened[len(backend.opened)-1]; got != installed {
		t.Errorf("opened %q, want %q", got, installed)
	}
	if got := c.LoadedLanguages(); !reflect.DeepEqual(got, []string{"de"}) {
		t.Errorf("LoadedLanguages() = %v", got)
	}
}

func TestDecode(t *testing.T) {
	installFakeBackend(t)
	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: t.TempDir()})

	text, limited, err := c.Decode(context.Background(), "en", []byte{0x01, 0x02})
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q", text)
	}
	if limited {
		t.Error("limited should be false")
	}
}

func TestDecodeResetsRecognizer(t *testing.T) {
	backend := installFakeBackend(t)
	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: t.TempDir()})
	ctx := context.Background()

	if _, _, err := c.Decode(ctx, "en", nil); err != nil {
		t.Fatal(err)
	}
	if _, _, err := c.Decode(ctx, "en", nil); err != nil {
		t.Fatal(err)
	}

	rec := backend.models[0].full[0]
	if rec.resets != 2 {
		t.Errorf("recognizer reset %d times, want 2", rec.resets)
	}
}

func TestLimitedVocabularySwitch(t *testing.T) {
	backend := installFakeBackend(t)
	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: t.TempDir()})
	ctx := context.Background()

	words := []string{"turn on the lights", "turn off the lights"}
	if err := c.EnableLimitedVocabulary(ctx, words, "en", false); err != nil {
		t.Fatalf("EnableLimitedVocabulary: %v", err)
	}
	if !c.Limited() {
		t.Error("Limited() should be true")
	}

	m := backend.models[0]
	if len(m.grammars) != 1 || m.grammars[0] != `["turn on the lights","turn off the lights"]` {
		t.Errorf("grammars = %v", m.grammars)
	}

	// Decodes must now hit the restricted recognizer.
	m.limited[0].final = `{"text": "turn on the lights"}`
	text, limited, err := c.Decode(ctx, "en", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !limited || text != "turn on the lights" {
		t.Errorf("Decode = (%q, %v)", text, limited)
	}

	// Back to open dictation.
	if err := c.EnableFullVocabulary("en"); err != nil {
		t.Fatalf("EnableFullVocabulary: %v", err)
	}
	if c.Limited() {
		t.Error("Limited() should be false again")
	}
	if !m.limited[0].isFreed() {
		t.Error("restricted recognizer not freed")
	}

	_, limited, err = c.Decode(ctx, "en", nil)
	if err != nil {
		t.Fatal(err)
	}
	if limited {
		t.Error("decode still limited after EnableFullVocabulary")
	}
}

func TestLimitedVocabularyPermanent(t *testing.T) {
	backend := installFakeBackend(t)
	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: t.TempDir()})
	ctx := context.Background()

	if err := c.EnableLimitedVocabulary(ctx, []string{"stop"}, "en", true); err != nil {
		t.Fatal(err)
	}

	m := backend.models[0]
	if !m.full[0].isFreed() {
		t.Error("full recognizer should be freed on permanent switch")
	}

	// Decode still works through the restricted recognizer.
	m.limited[0].final = `{"text": "stop"}`
	text, limited, err := c.Decode(ctx, "en", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !limited || text != "stop" {
		t.Errorf("Decode = (%q, %v)", text, limited)
	}

	// Restoring rebuilds the full recognizer from the cached model.
	if err := c.EnableFullVocabulary("en"); err != nil {
		t.Fatal(err)
	}
	if len(m.full) != 2 {
		t.Fatalf("full recognizers built: %d, want 2", len(m.full))
	}
	if _, limited, _ := c.Decode(ctx, "en", nil); limited {
		t.Error("decode limited after restore")
	}
}

func TestEnableLimitedVocabularyEmpty(t *testing.T) {
	installFakeBackend(t)
	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: t.TempDir()})

	if err := c.EnableLimitedVocabulary(context.Background(), nil, "en", false); err == nil {
		t.Fatal("expected error for empty phrase list")
	}
}

func TestNewSessionRecognizer(t *testing.T) {
	backend := installFakeBackend(t)
	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: t.TempDir()})
	ctx := context.Background()

	rec, limited, err := c.NewSessionRecognizer(ctx, "en")
	if err != nil {
		t.Fatal(err)
	}
	if limited {
		t.Error("session should not be limited")
	}
	if rec == nil {
		t.Fatal("nil recognizer")
	}

	// In limited mode, sessions get their own grammar recognizer.
	if err := c.EnableLimitedVocabulary(ctx, []string{"yes", "no"}, "en", false); err != nil {
		t.Fatal(err)
	}
	_, limited, err = c.NewSessionRecognizer(ctx, "en")
	if err != nil {
		t.Fatal(err)
	}
	if !limited {
		t.Error("session should be limited")
	}

	m := backend.models[0]
	if got := m.grammars[len(m.grammars)-1]; got != `["yes","no"]` {
		t.Errorf("session grammar = %q", got)
	}
}

func TestUnloadLanguage(t *testing.T) {
	backend := installFakeBackend(t)
	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: t.TempDir()})
	ctx := context.Background()

	if err := c.EnableLimitedVocabulary(ctx, []string{"go"}, "en", false); err != nil {
		t.Fatal(err)
	}
	c.UnloadLanguage("en")

	m := backend.models[0]
	if !m.freed || !m.full[0].isFreed() || !m.limited[0].isFreed() {
		t.Error("native handles not freed on unload")
	}
	if got := c.LoadedLanguages(); len(got) != 0 {
		t.Errorf("LoadedLanguages() = %v, want empty", got)
	}

	// Unloading again is a no-op.
	c.UnloadLanguage("en")
}

func TestShutdownFreesEverything(t *testing.T) {
	backend := installFakeBackend(t)
	c := testContainer(t, Config{DefaultLanguage: "en", ModelPath: t.TempDir()})

	if err := c.LoadLanguage(context.Background(), "en"); err != nil {
		t.Fatal(err)
	}
	c.Shutdown()

	for _, m := range backend.models {
		if !m.freed {
			t.Errorf("model %s not freed", m.path)
		}
	}
}
