package stt

import (
	"context"
	"sync"
)

// Mock is a canned-response engine for transport and service tests.
type Mock struct {
	// TranscribeFunc overrides Transcribe when set.
	TranscribeFunc func(ctx context.Context, wavData []byte, opts Opts) (*Result, error)

	// Transcript is returned by default.
	Transcript string

	mu     sync.Mutex
	calls  int
	closed bool
}

// Name returns "mock".
func (m *Mock) Name() string { return "mock" }

// Transcribe returns the canned transcript or delegates to TranscribeFunc.
func (m *Mock) Transcribe(ctx context.Context, wavData []byte, opts Opts) (*Result, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.TranscribeFunc != nil {
		return m.TranscribeFunc(ctx, wavData, opts)
	}
	return &Result{Text: m.Transcript, Language: opts.Language, Final: true}, nil
}

// OpenStream returns a mock stream that echoes fed chunk sizes as partials
// and the canned transcript on finalize.
func (m *Mock) OpenStream(ctx context.Context, opts Opts) (Stream, error) {
	return &mockStream{
		transcript: m.Transcript,
		language:   opts.Language,
		results:    make(chan Result, 16),
	}, nil
}

// Calls reports how many one-shot transcriptions ran.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the engine closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

type mockStream struct {
	transcript string
	language   string
	results    chan Result
	mu         sync.Mutex
	closed     bool
}

func (s *mockStream) Feed(chunk []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStreamClosed
	}
	select {
	case s.results <- Result{Text: s.transcript, Language: s.language}:
	default:
	}
	return nil
}

func (s *mockStream) Results() <-chan Result { return s.results }

func (s *mockStream) Finalize(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrStreamClosed
	}
	return s.transcript, nil
}

func (s *mockStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.results)
	}
	return nil
}
