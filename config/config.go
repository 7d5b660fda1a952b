package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"go.yaml.in/yaml/v3"

	"github.com/thisisjab/contactsearch/registry"
	"github.com/thisisjab/contactsearch/storage"
)

type Config struct {
	Logger   LoggerConfig                  `yaml:"logger"`
	Storage  storage.ClickHouseStoreConfig `yaml:"storage"`
	Registry RegistryConfig                `yaml:"registry"`
}

type LoggerConfig struct {
	Level string `yaml:"level"`
	Type  string `yaml:"type"`
}

type RegistryConfig struct {
	// Path of the YAML field-schema file watched for changes.
	Path string `yaml:"path"`
}

// Load reads and decodes a config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("cannot read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("cannot parse config file: %w", err)
	}

	return cfg, nil
}

// Parse wires the configured components.
func (cfg Config) Parse() (*storage.ClickHouseStore, *registry.File, *slog.Logger, error) {
	logger, err := parseLoggerConfig(cfg.Logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("cannot create logger: %w", err)
	}

	store, err := storage.NewClickHouseStore(cfg.Storage)
	if err != nil {
		return nil, nil, logger, fmt.Errorf("cannot create storage: %w", err)
	}

	reg, err := registry.NewFile(logger, cfg.Registry.Path)
	if err != nil {
		return nil, nil, logger, fmt.Errorf("cannot create registry: %w", err)
	}

	return store, reg, logger, nil
}

func parseLoggerConfig(cfg LoggerConfig) (*slog.Logger, error) {
	var handler slog.Handler

	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", cfg.Level)
	}

	w := os.Stdout
	switch cfg.Type {
	case "json":
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "text":
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	case "colored-text":
		handler = tint.NewHandler(w, &tint.Options{Level: level, AddSource: true})
	default:
		return nil, fmt.Errorf("invalid log type: %s", cfg.Type)
	}

	return slog.New(handler), nil
}
