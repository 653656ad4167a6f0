// Package config handles loading and validating the earshot configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for the earshot daemon.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Transports TransportsConfig `mapstructure:"transports"`
	STT        STTConfig        `mapstructure:"stt"`
	Models     ModelsConfig     `mapstructure:"models"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig holds the health check server settings.
type ServerConfig struct {
	HealthPort int `mapstructure:"health_port"`
}

// TransportsConfig holds the configuration for each transport layer.
type TransportsConfig struct {
	GRPC GRPCConfig `mapstructure:"grpc"`
	HTTP HTTPConfig `mapstructure:"http"`
	MQTT MQTTConfig `mapstructure:"mqtt"`
}

// GRPCConfig configures the gRPC transport.
type GRPCConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// HTTPConfig configures the HTTP/WebSocket transport.
type HTTPConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// MQTTConfig configures the MQTT transport.
type MQTTConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Broker      string `mapstructure:"broker"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	ClientID    string `mapstructure:"client_id"`
}

// STTConfig configures the recognition engine.
type STTConfig struct {
	// Language is the default recognition language (BCP-47 or ISO-639-1).
	Language string `mapstructure:"language"`

	// ModelPath points at an already-unpacked Vosk model directory. When set
	// it takes precedence over ModelURL and the built-in registry.
	ModelPath string `mapstructure:"model_path"`

	// ModelURL overrides the registry URL for the default language. The
	// archive is downloaded into the model store on first use.
	ModelURL string `mapstructure:"model_url"`

	// SampleRate is the PCM sample rate the recognizer is constructed with.
	SampleRate int `mapstructure:"sample_rate"`

	// PreferSmall selects the small model variant from the registry when a
	// language has both small and large models.
	PreferSmall bool `mapstructure:"prefer_small"`

	// VerbosePartials logs every changed partial transcript on streams.
	VerbosePartials bool `mapstructure:"verbose_partials"`

	// VocabDirs lists directories searched for .voc vocabulary files.
	VocabDirs []string `mapstructure:"vocab_dirs"`
}

// ModelsConfig configures the on-disk model store.
type ModelsConfig struct {
	// Dir is the model store directory. Empty means
	// $XDG_DATA_HOME/earshot/vosk (falling back to ~/.local/share).
	Dir string `mapstructure:"dir"`
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// Load reads the configuration from file, environment variables, and defaults.
// If configFile is non-empty it is used directly; otherwise the standard
// search order applies: ./earshot.yaml, ./configs/earshot.yaml,
// /etc/earshot/earshot.yaml.
func Load(configFile string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.health_port", 8081)
	v.SetDefault("transports.grpc.enabled", true)
	v.SetDefault("transports.grpc.port", 50051)
	v.SetDefault("transports.http.enabled", true)
	v.SetDefault("transports.http.port", 8080)
	v.SetDefault("transports.mqtt.enabled", false)
	v.SetDefault("transports.mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("transports.mqtt.topic_prefix", "earshot")
	v.SetDefault("transports.mqtt.client_id", "earshot")
	v.SetDefault("stt.language", "en")
	v.SetDefault("stt.sample_rate", 16000)
	v.SetDefault("stt.prefer_small", true)
	v.SetDefault("stt.verbose_partials", false)
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	// Config file
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("earshot")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/earshot")
	}

	// Environment variables: EARSHOT_STT_LANGUAGE, EARSHOT_MODELS_DIR, etc.
	v.SetEnvPrefix("EARSHOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (optional — env vars and defaults are sufficient)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		slog.Info("no config file found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", "path", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	// Resolve env var references in path fields (e.g., "${EARSHOT_MODEL}")
	cfg.STT.ModelPath = resolveEnvRef(cfg.STT.ModelPath)
	cfg.Models.Dir = resolveEnvRef(cfg.Models.Dir)

	if cfg.STT.SampleRate <= 0 {
		return nil, fmt.Errorf("stt.sample_rate must be positive, got %d", cfg.STT.SampleRate)
	}

	return &cfg, nil
}

// resolveEnvRef replaces "${VAR_NAME}" patterns with the corresponding env var value.
func resolveEnvRef(val string) string {
	if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
		envKey := val[2 : len(val)-1]
		if envVal := os.Getenv(envKey); envVal != "" {
			return envVal
		}
	}
	return val
}

// SetupLogging configures the global slog logger based on config.
func SetupLogging(cfg LoggingConfig) {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.ToLower(cfg.Format) == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}
