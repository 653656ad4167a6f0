//go:build novosk || !cgo

package vosk

import "github.com/earshot/earshot/internal/stt"

// openNativeModel fails on builds without the native library.
func openNativeModel(path string) (model, error) {
	return nil, stt.ErrEngineUnavailable
}
