// Package http implements the HTTP/WebSocket transport for earshot.
//
// This transport exposes a REST API for one-shot transcription and language
// management, and a WebSocket endpoint for streaming audio with partial
// results. It is best suited for web clients, phones, and services that
// prefer HTTP-based communication.
package http

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/earshot/earshot/internal/message"
	"github.com/earshot/earshot/internal/transport"
)

// maxAudioBytes caps one-shot uploads. 25 MB holds over ten minutes of
// 16 kHz mono PCM, far beyond a voice-assistant utterance.
const maxAudioBytes = 25 << 20

// Transport implements transport.Transport over HTTP and WebSocket.
type Transport struct {
	port   int
	server *http.Server
}

// New creates a new HTTP transport on the given port.
func New(port int) *Transport {
	return &Transport{port: port}
}

// Name returns the transport identifier.
func (t *Transport) Name() string { return "http" }

// Listen starts the HTTP server and routes incoming requests to the service.
func (t *Transport) Listen(ctx context.Context, svc transport.Service) error {
	t.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", t.port),
		Handler:           t.handler(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	slog.Info("http transport listening", "port", t.port)

	go func() {
		<-ctx.Done()
		slog.Info("http transport shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = t.server.Shutdown(shutdownCtx)
	}()

	if err := t.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("http listen: %w", err)
	}
	return nil
}

// handler builds the route table.
func (t *Transport) handler(svc transport.Service) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /v1/transcribe", func(w http.ResponseWriter, r *http.Request) {
		t.handleTranscribe(w, r, svc)
	})

	mux.HandleFunc("GET /v1/languages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, svc.Languages())
	})

	mux.HandleFunc("POST /v1/languages/{lang}", func(w http.ResponseWriter, r *http.Request) {
		t.handleLoadLanguage(w, r, svc)
	})

	mux.HandleFunc("DELETE /v1/languages/{lang}", func(w http.ResponseWriter, r *http.Request) {
		svc.UnloadLanguage(r.PathValue("lang"))
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /v1/vocabulary/{lang}", func(w http.ResponseWriter, r *http.Request) {
		t.handleSetVocabulary(w, r, svc)
	})

	mux.HandleFunc("DELETE /v1/vocabulary/{lang}", func(w http.ResponseWriter, r *http.Request) {
		if err := svc.ClearVocabulary(r.PathValue("lang")); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	// WebSocket endpoint for streaming audio with partial results.
	mux.HandleFunc("GET /ws", func(w http.ResponseWriter, r *http.Request) {
		t.handleStream(w, r, svc)
	})

	// Swagger UI — serves the generated OpenAPI docs.
	mux.Handle("GET /swagger/", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	return mux
}

// handleTranscribe processes a POST /v1/transcribe request.
//
// @Summary     Transcribe an audio payload
// @Description Accepts a JSON request (with base64 audio) or raw WAV bytes.
// @Description The audio is decoded by the recognition engine and the transcript returned.
// @Tags        transcribe
// @Accept      json
// @Accept      audio/wav
// @Produce     json
// @Param       request  body      message.Request  true  "Transcription request (JSON). For raw audio, POST the bytes directly with Content-Type audio/wav."
// @Param       X-Earshot-Source    header  string  false  "Sender identifier (used with raw audio uploads)"
// @Param       X-Earshot-Language  header  string  false  "Language override (used with raw audio uploads)"
// @Success     200  {object}  message.TranscribeResult  "Transcript"
// @Failure     400  {string}  string  "Invalid request body or headers"
// @Router      /v1/transcribe [post]
func (t *Transport) handleTranscribe(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	var req message.Request

	contentType := r.Header.Get("Content-Type")
	mediaType, _, _ := mime.ParseMediaType(contentType)
	switch {
	case mediaType == "application/json":
		if err := json.NewDecoder(io.LimitReader(r.Body, maxAudioBytes)).Decode(&req); err != nil {
			http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
			return
		}
	default:
		// Treat body as raw audio; read options from headers.
		audioData, err := io.ReadAll(io.LimitReader(r.Body, maxAudioBytes))
		if err != nil {
			http.Error(w, "reading audio: "+err.Error(), http.StatusBadRequest)
			return
		}
		req.Audio = audioData
		req.ContentType = contentType
		req.Source = r.Header.Get("X-Earshot-Source")
		req.Language = r.Header.Get("X-Earshot-Language")
	}
	req.Timestamp = time.Now()

	result := svc.Transcribe(r.Context(), &req)
	writeJSON(w, http.StatusOK, result)
}

// handleLoadLanguage processes a POST /v1/languages/{lang} request.
//
// @Summary     Load a language
// @Description Loads the recognizer for a language, downloading its model into the store on first use.
// @Tags        languages
// @Produce     json
// @Param       lang  path  string  true  "Language tag (BCP-47 or ISO-639-1)"
// @Success     204  "Language loaded"
// @Failure     404  {string}  string  "No default model for this language"
// @Router      /v1/languages/{lang} [post]
func (t *Transport) handleLoadLanguage(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	lang := r.PathValue("lang")
	if err := svc.LoadLanguage(r.Context(), lang); err != nil {
		slog.Error("language load failed", "language", lang, "error", err)
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleSetVocabulary processes a POST /v1/vocabulary/{lang} request.
//
// @Summary     Restrict a language to a vocabulary
// @Description Switches the language's recognizer to a grammar limited to the given phrases or .voc file.
// @Tags        vocabulary
// @Accept      json
// @Param       lang     path  string                     true  "Language tag"
// @Param       request  body  message.VocabularyRequest  true  "Phrase list or vocabulary file name"
// @Success     204  "Vocabulary applied"
// @Failure     400  {string}  string  "Invalid request"
// @Router      /v1/vocabulary/{lang} [post]
func (t *Transport) handleSetVocabulary(w http.ResponseWriter, r *http.Request, svc transport.Service) {
	var req message.VocabularyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json: "+err.Error(), http.StatusBadRequest)
		return
	}
	if err := svc.SetVocabulary(r.Context(), r.PathValue("lang"), req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Close gracefully shuts down the HTTP server.
func (t *Transport) Close() error {
	if t.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return t.server.Shutdown(ctx)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
