// Earshot is an offline speech-to-text daemon built on Vosk. It manages
// language models, keeps per-language recognizers warm, and serves one-shot
// and streaming transcription over HTTP, gRPC, and MQTT.
//
// Usage:
//
//	earshot serve [--config /path/to/earshot.yaml]
//	earshot transcribe recording.wav
//	earshot models list
package main

import (
	"fmt"
	"os"

	"github.com/earshot/earshot/internal/cli"

	_ "github.com/earshot/earshot/docs"
)

// @title        Earshot API
// @version      1.0
// @description  Offline speech-to-text service backed by Vosk/Kaldi models.
// @BasePath     /

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "earshot: %v\n", err)
		os.Exit(1)
	}
}
