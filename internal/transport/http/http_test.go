package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"

	"github.com/earshot/earshot/internal/message"
	"github.com/earshot/earshot/internal/stt"
	"github.com/earshot/earshot/internal/transport"
)

// fakeService records calls and plays back canned responses.
type fakeService struct {
	engine *stt.Mock

	lastRequest *message.Request
	loadErr     error
	loaded      []string
	unloaded    []string
	vocabLang   string
	vocabReq    message.VocabularyRequest
	vocabErr    error
	cleared     []string
}

func newFakeService(transcript string) *fakeService {
	return &fakeService{engine: &stt.Mock{Transcript: transcript}}
}

func (f *fakeService) Transcribe(ctx context.Context, req *message.Request) *message.TranscribeResult {
	f.lastRequest = req
	res, err := f.engine.Transcribe(ctx, req.Audio, stt.Opts{Language: req.Language})
	if err != nil {
		return &message.TranscribeResult{RequestID: req.ID, Error: err.Error()}
	}
	return &message.TranscribeResult{RequestID: req.ID, Transcript: res.Text, Language: req.Language}
}

func (f *fakeService) OpenStream(ctx context.Context, language string) (string, stt.Stream, error) {
	stream, err := f.engine.OpenStream(ctx, stt.Opts{Language: language})
	return "stream-1", stream, err
}

func (f *fakeService) Languages() message.LanguagesStatus {
	return message.LanguagesStatus{Default: "en", Loaded: []string{"en"}, Available: []string{"en", "de"}}
}

func (f *fakeService) LoadLanguage(ctx context.Context, lang string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	f.loaded = append(f.loaded, lang)
	return nil
}

func (f *fakeService) UnloadLanguage(lang string) {
	f.unloaded = append(f.unloaded, lang)
}

func (f *fakeService) SetVocabulary(ctx context.Context, lang string, req message.VocabularyRequest) error {
	if f.vocabErr != nil {
		return f.vocabErr
	}
	f.vocabLang = lang
	f.vocabReq = req
	return nil
}

func (f *fakeService) ClearVocabulary(lang string) error {
	f.cleared = append(f.cleared, lang)
	return nil
}

var _ transport.Service = (*fakeService)(nil)

func testServer(t *testing.T, svc transport.Service) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(New(0).handler(svc))
	t.Cleanup(srv.Close)
	return srv
}

func TestTranscribeJSON(t *testing.T) {
	svc := newFakeService("hello world")
	srv := testServer(t, svc)

	body, _ := json.Marshal(message.Request{
		ID:       "req-1",
		Source:   "test-client",
		Audio:    []byte{0x01, 0x02},
		Language: "en",
	})
	resp, err := http.Post(srv.URL+"/v1/transcribe", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}

	var result message.TranscribeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	if result.Transcript != "hello world" || result.RequestID != "req-1" {
		t.Errorf("result = %+v", result)
	}
	if svc.lastRequest.Source != "test-client" {
		t.Errorf("source = %q", svc.lastRequest.Source)
	}
}

func TestTranscribeJSONWithCharset(t *testing.T) {
	svc := newFakeService("hello world")
	srv := testServer(t, svc)

	body, _ := json.Marshal(message.Request{ID: "req-2", Audio: []byte{0x01}})
	resp, err := http.Post(srv.URL+"/v1/transcribe", "application/json; charset=utf-8", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var result message.TranscribeResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatal(err)
	}
	// The body must be parsed as JSON, not treated as raw audio bytes.
	if result.Transcript != "hello world" || result.RequestID != "req-2" {
		t.Errorf("result = %+v", result)
	}
	if svc.lastRequest.ID != "req-2" {
		t.Errorf("request = %+v, JSON body not decoded", svc.lastRequest)
	}
}

func TestTranscribeRawAudio(t *testing.T) {
	svc := newFakeService("raw works")
	srv := testServer(t, svc)

	req, _ := http.NewRequest(http.MethodPost, srv.URL+"/v1/transcribe", bytes.NewReader([]byte("RIFFfake")))
	req.Header.Set("Content-Type", "audio/wav")
	req.Header.Set("X-Earshot-Source", "satellite-kitchen")
	req.Header.Set("X-Earshot-Language", "de")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if svc.lastRequest.Source != "satellite-kitchen" || svc.lastRequest.Language != "de" {
		t.Errorf("request = %+v", svc.lastRequest)
	}
	if string(svc.lastRequest.Audio) != "RIFFfake" {
		t.Errorf("audio = %q", svc.lastRequest.Audio)
	}
	if svc.lastRequest.ContentType != "audio/wav" {
		t.Errorf("content type = %q", svc.lastRequest.ContentType)
	}
}

func TestTranscribeInvalidJSON(t *testing.T) {
	srv := testServer(t, newFakeService(""))

	resp, err := http.Post(srv.URL+"/v1/transcribe", "application/json", strings.NewReader("{broken"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestLanguages(t *testing.T) {
	srv := testServer(t, newFakeService(""))

	resp, err := http.Get(srv.URL + "/v1/languages")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var status message.LanguagesStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Default != "en" || len(status.Available) != 2 {
		t.Errorf("status = %+v", status)
	}
}

func TestLoadLanguage(t *testing.T) {
	svc := newFakeService("")
	srv := testServer(t, svc)

	resp, err := http.Post(srv.URL+"/v1/languages/de", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(svc.loaded) != 1 || svc.loaded[0] != "de" {
		t.Errorf("loaded = %v", svc.loaded)
	}
}

func TestLoadLanguageFailure(t *testing.T) {
	svc := newFakeService("")
	svc.loadErr = errors.New("no model for zz")
	srv := testServer(t, svc)

	resp, err := http.Post(srv.URL+"/v1/languages/zz", "", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}

func TestUnloadLanguage(t *testing.T) {
	svc := newFakeService("")
	srv := testServer(t, svc)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/languages/de", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(svc.unloaded) != 1 || svc.unloaded[0] != "de" {
		t.Errorf("unloaded = %v", svc.unloaded)
	}
}

func TestSetVocabulary(t *testing.T) {
	svc := newFakeService("")
	srv := testServer(t, svc)

	body := `{"phrases": ["yes", "no"], "permanent": true}`
	resp, err := http.Post(srv.URL+"/v1/vocabulary/en", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if svc.vocabLang != "en" || len(svc.vocabReq.Phrases) != 2 || !svc.vocabReq.Permanent {
		t.Errorf("vocab call = %q %+v", svc.vocabLang, svc.vocabReq)
	}
}

func TestSetVocabularyBadRequest(t *testing.T) {
	svc := newFakeService("")
	svc.vocabErr = errors.New("no phrases")
	srv := testServer(t, svc)

	resp, err := http.Post(srv.URL+"/v1/vocabulary/en", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}

func TestClearVocabulary(t *testing.T) {
	svc := newFakeService("")
	srv := testServer(t, svc)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/v1/vocabulary/en", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", resp.StatusCode)
	}
	if len(svc.cleared) != 1 || svc.cleared[0] != "en" {
		t.Errorf("cleared = %v", svc.cleared)
	}
}

func TestWebSocketStream(t *testing.T) {
	svc := newFakeService("streamed text")
	srv := testServer(t, svc)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?language=en"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.CloseNow()

	// Feed a binary chunk; the mock stream echoes its transcript as a partial.
	if err := conn.Write(ctx, websocket.MessageBinary, []byte{0x01, 0x02}); err != nil {
		t.Fatal(err)
	}

	readEvent := func() message.StreamEvent {
		t.Helper()
		_, data, err := conn.Read(ctx)
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var ev message.StreamEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			t.Fatalf("unmarshal %q: %v", data, err)
		}
		return ev
	}

	ev := readEvent()
	if ev.StreamID != "stream-1" || ev.Text != "streamed text" || ev.Final {
		t.Errorf("partial event = %+v", ev)
	}

	// Finalize and expect the accumulated transcript as a final event.
	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"action": "finalize"}`)); err != nil {
		t.Fatal(err)
	}
	ev = readEvent()
	if !ev.Final || ev.Text != "streamed text" {
		t.Errorf("final event = %+v", ev)
	}

	if err := conn.Close(websocket.StatusNormalClosure, "done"); err != nil {
		t.Fatal(err)
	}
}

func TestWebSocketUnknownAction(t *testing.T) {
	srv := testServer(t, newFakeService(""))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.CloseNow()

	if err := conn.Write(ctx, websocket.MessageText, []byte(`{"action": "dance"}`)); err != nil {
		t.Fatal(err)
	}
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var ev message.StreamEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Error == "" {
		t.Errorf("event = %+v, want error for unknown action", ev)
	}
}
