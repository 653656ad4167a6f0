package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/earshot/earshot/internal/config"
	"github.com/earshot/earshot/internal/models"
	"github.com/earshot/earshot/internal/stt"
	"github.com/earshot/earshot/internal/stt/vosk"
	"github.com/earshot/earshot/internal/vocab"
)

var (
	transcribeLanguage string
	transcribeVocab    string
)

var transcribeCmd = &cobra.Command{
	Use:   "transcribe FILE",
	Short: "Transcribe a WAV file and print the text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTranscribe(args[0])
	},
}

func init() {
	transcribeCmd.Flags().StringVarP(&transcribeLanguage, "language", "l", "", "recognition language (default: configured language)")
	transcribeCmd.Flags().StringVar(&transcribeVocab, "vocab", "", "restrict recognition to a .voc vocabulary file")
	rootCmd.AddCommand(transcribeCmd)
}

func runTranscribe(path string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	config.SetupLogging(cfg.Logging)

	wavData, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading audio file: %w", err)
	}

	store, err := models.NewStore(cfg.Models.Dir)
	if err != nil {
		return err
	}

	engine, err := vosk.New(vosk.Config{
		DefaultLanguage: cfg.STT.Language,
		ModelPath:       cfg.STT.ModelPath,
		ModelURL:        cfg.STT.ModelURL,
		SampleRate:      cfg.STT.SampleRate,
		PreferSmall:     cfg.STT.PreferSmall,
	}, store)
	if err != nil {
		return err
	}
	defer engine.Close()

	ctx := context.Background()

	if transcribeVocab != "" {
		phrases, err := vocab.ReadFile(transcribeVocab)
		if err != nil {
			return err
		}
		lang := transcribeLanguage
		if lang == "" {
			lang = cfg.STT.Language
		}
		if err := engine.Container().EnableLimitedVocabulary(ctx, phrases, lang, false); err != nil {
			return err
		}
	}

	result, err := engine.Transcribe(ctx, wavData, stt.Opts{Language: transcribeLanguage})
	if err != nil {
		return err
	}

	fmt.Println(result.Text)
	return nil
}
