// Package cli implements the earshot command line interface.
package cli

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time via ldflags.
var version = "dev"

var configFile string

var rootCmd = &cobra.Command{
	Use:   "earshot",
	Short: "Offline speech-to-text daemon built on Vosk",
	Long: `Earshot turns a Vosk/Kaldi model into a transcription service: it locates
or downloads language models, keeps per-language recognizers warm, and serves
one-shot and streaming transcription over HTTP, gRPC, and MQTT.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// A missing .env is fine; explicit config wins over it anyway.
		_ = godotenv.Load()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to config file (e.g. configs/earshot.yaml)")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}
