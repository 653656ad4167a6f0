// Package health provides a simple HTTP health check endpoint.
//
// Docker and Kubernetes use this endpoint to monitor the daemon's liveness.
// When the daemon is running and its default language is loaded, /healthz
// returns 200 OK along with the loaded languages.
package health

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"
)

// Server is a lightweight HTTP server that exposes /healthz and /readyz.
type Server struct {
	port      int
	ready     atomic.Bool
	languages func() []string
	server    *http.Server
}

// New creates a new health check server. languages supplies the currently
// loaded language tags for the status payload; it may be nil.
func New(port int, languages func() []string) *Server {
	return &Server{port: port, languages: languages}
}

// SetReady marks the daemon as ready to accept traffic.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// ListenAndServe starts the health check HTTP server.
// It blocks until the context is cancelled.
func (s *Server) ListenAndServe(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleStatus)
	mux.HandleFunc("GET /readyz", s.handleStatus)

	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	slog.Info("health server listening", "port", s.port)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	if err := s.server.ListenAndServe(); err != http.ErrServerClosed {
		return fmt.Errorf("health server: %w", err)
	}
	return nil
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	type statusPayload struct {
		Status    string   `json:"status"`
		Languages []string `json:"languages,omitempty"`
	}

	w.Header().Set("Content-Type", "application/json")

	if !s.ready.Load() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(statusPayload{Status: "not_ready"})
		return
	}

	payload := statusPayload{Status: "ok"}
	if s.languages != nil {
		payload.Languages = s.languages()
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(payload)
}
