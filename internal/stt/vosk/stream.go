package vosk

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/earshot/earshot/internal/stt"
)

// stream is a streaming recognition session. Audio chunks are queued on a
// channel and drained by a single worker goroutine that owns the recognizer;
// nothing else touches the native handle, so no locking is needed around
// decode calls.
type stream struct {
	rec     recognizer
	lang    string
	limited bool
	verbose bool

	jobs    chan streamJob
	results chan stt.Result
	quit    chan struct{}
	done    chan struct{}

	closeOnce sync.Once
}

// streamJob is either an audio chunk or, when fin is set, a finalize request.
type streamJob struct {
	chunk []byte
	fin   chan string
}

func newStream(rec recognizer, lang string, limited, verbose bool) *stream {
	s := &stream{
		rec:     rec,
		lang:    lang,
		limited: limited,
		verbose: verbose,
		jobs:    make(chan streamJob, 32),
		results: make(chan stt.Result, 32),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go s.run()
	return s
}

// Feed queues a chunk of raw PCM16 audio. It blocks when the worker falls
// behind, which applies natural backpressure to the producer.
func (s *stream) Feed(chunk []byte) error {
	// A closed stream must refuse audio deterministically: with buffer room
	// in jobs, a two-way select against the closed quit channel would pick
	// at random.
	select {
	case <-s.quit:
		return stt.ErrStreamClosed
	default:
	}

	select {
	case s.jobs <- streamJob{chunk: chunk}:
		return nil
	case <-s.quit:
		return stt.ErrStreamClosed
	}
}

// Results returns the partial/final result channel. It is closed on Close.
func (s *stream) Results() <-chan stt.Result {
	return s.results
}

// Finalize flushes buffered audio and returns the transcript accumulated
// since the session started (or since the previous Finalize). The session
// stays usable afterwards.
func (s *stream) Finalize(ctx context.Context) (string, error) {
	select {
	case <-s.quit:
		return "", stt.ErrStreamClosed
	default:
	}

	reply := make(chan string, 1)

	select {
	case s.jobs <- streamJob{fin: reply}:
	case <-s.quit:
		return "", stt.ErrStreamClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}

	select {
	case text := <-reply:
		return text, nil
	case <-s.quit:
		return "", stt.ErrStreamClosed
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Close stops the worker, frees the recognizer, and closes the result
// channel. Safe to call more than once.
func (s *stream) Close() error {
	s.closeOnce.Do(func() {
		close(s.quit)
		<-s.done
		s.rec.Free()
		close(s.results)
	})
	return nil
}

// run is the session worker: it drains the chunk queue, turning recognizer
// output into partial and final results.
func (s *stream) run() {
	defer close(s.done)

	var segments []string
	previousPartial := ""

	for {
		select {
		case <-s.quit:
			return
		case job := <-s.jobs:
			if job.fin != nil {
				if previousPartial != "" {
					if s.verbose {
						slog.Info("finalizing stream", "language", s.lang)
					}
					if text, err := parseText(s.rec.FinalResult()); err == nil && text != "" {
						segments = append(segments, text)
						s.emit(stt.Result{Text: text, Language: s.lang, Final: true, Limited: s.limited})
					}
					previousPartial = ""
				}
				job.fin <- strings.Join(segments, " ")
				segments = nil
				continue
			}

			if s.rec.AcceptWaveform(job.chunk) != 0 {
				// Segment boundary: the recognizer finalized an utterance.
				text, err := parseText(s.rec.Result())
				if err == nil && text != "" {
					segments = append(segments, text)
					s.emit(stt.Result{Text: text, Language: s.lang, Final: true, Limited: s.limited})
				}
				previousPartial = ""
				continue
			}

			partial, err := parsePartial(s.rec.PartialResult())
			if err != nil || partial == previousPartial {
				continue
			}
			if s.verbose {
				slog.Info("partial transcription", "language", s.lang, "text", partial)
			}
			previousPartial = partial
			s.emit(stt.Result{Text: partial, Language: s.lang, Limited: s.limited})
		}
	}
}

// emit delivers a result unless the stream is shutting down.
func (s *stream) emit(r stt.Result) {
	select {
	case s.results <- r:
	case <-s.quit:
	}
}
