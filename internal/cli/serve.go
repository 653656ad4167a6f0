package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/earshot/earshot/internal/config"
	"github.com/earshot/earshot/internal/health"
	"github.com/earshot/earshot/internal/models"
	"github.com/earshot/earshot/internal/service"
	"github.com/earshot/earshot/internal/stt/vosk"
	"github.com/earshot/earshot/internal/transport"
	grpctransport "github.com/earshot/earshot/internal/transport/grpc"
	httptransport "github.com/earshot/earshot/internal/transport/http"
	mqtttransport "github.com/earshot/earshot/internal/transport/mqtt"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the transcription daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	// Load configuration.
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	// Setup structured logging.
	config.SetupLogging(cfg.Logging)
	slog.Info("earshot starting", "version", version)

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize the model store and the engine.
	store, err := models.NewStore(cfg.Models.Dir)
	if err != nil {
		return err
	}
	slog.Info("model store ready", "dir", store.Dir())

	engine, err := vosk.New(vosk.Config{
		DefaultLanguage: cfg.STT.Language,
		ModelPath:       cfg.STT.ModelPath,
		ModelURL:        cfg.STT.ModelURL,
		SampleRate:      cfg.STT.SampleRate,
		PreferSmall:     cfg.STT.PreferSmall,
		VerbosePartials: cfg.STT.VerbosePartials,
	}, store)
	if err != nil {
		return err
	}
	defer engine.Close()

	// Load the default language up front; a daemon without a working model
	// should fail at startup, not on the first request.
	if err := engine.Preload(ctx); err != nil {
		return fmt.Errorf("loading default language %q: %w", cfg.STT.Language, err)
	}

	svc := service.New(engine, engine.Container(), store, cfg.STT.Language, cfg.STT.VocabDirs)

	// Initialize enabled transports.
	var transports []transport.Transport

	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port))
	}
	if cfg.Transports.HTTP.Enabled {
		transports = append(transports, httptransport.New(cfg.Transports.HTTP.Port))
	}
	if cfg.Transports.MQTT.Enabled {
		transports = append(transports, mqtttransport.New(
			cfg.Transports.MQTT.Broker,
			cfg.Transports.MQTT.TopicPrefix,
			cfg.Transports.MQTT.ClientID,
		))
	}

	if len(transports) == 0 {
		return fmt.Errorf("no transports enabled — enable at least one in config")
	}

	// Start health check server.
	healthServer := health.New(cfg.Server.HealthPort, engine.Container().LoadedLanguages)
	go func() {
		if err := healthServer.ListenAndServe(ctx); err != nil {
			slog.Error("health server failed", "error", err)
		}
	}()

	// Start all transports.
	var wg sync.WaitGroup
	for _, t := range transports {
		wg.Add(1)
		go func(t transport.Transport) {
			defer wg.Done()
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx, svc); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
			}
		}(t)
	}

	// Mark as ready once all transports are started.
	healthServer.SetReady(true)
	slog.Info("earshot ready",
		"language", cfg.STT.Language,
		"transports", len(transports),
		"health_port", cfg.Server.HealthPort)

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("earshot stopped")
	return nil
}
