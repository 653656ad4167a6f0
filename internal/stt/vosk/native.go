//go:build !novosk && cgo

package vosk

import (
	vosk "github.com/alphacep/vosk-api/go"
)

// openNativeModel loads a Vosk model directory through the native binding.
func openNativeModel(path string) (model, error) {
	m, err := vosk.NewModel(path)
	if err != nil {
		return nil, err
	}
	return &nativeModel{m: m}, nil
}

// nativeModel wraps *vosk.VoskModel. *vosk.VoskRecognizer already satisfies
// the recognizer interface.
type nativeModel struct {
	m *vosk.VoskModel
}

func (n *nativeModel) NewRecognizer(sampleRate float64) (recognizer, error) {
	r, err := vosk.NewRecognizer(n.m, sampleRate)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (n *nativeModel) NewGrammarRecognizer(sampleRate float64, grammar string) (recognizer, error) {
	r, err := vosk.NewRecognizerGrm(n.m, sampleRate, grammar)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (n *nativeModel) Free() {
	n.m.Free()
}
