package config

import (
	"log/slog"
	"strings"

	"github.com/golobby/config/v3"
	"github.com/golobby/config/v3/pkg/feeder"
)

type Config struct {
	Earshot  EarshotConfig
	Backend  BackendConfig
	Pushover PushoverConfig
}

type EarshotConfig struct {
	DbPath     string `env:"DB_PATH"`
	ListenAddr string `env:"LISTEN_ADDR"`
	LogLevel   string `env:"LOG_LEVEL"`
	StorageDir string `env:"STORAGE_DIR"`
}

type BackendConfig struct {
	URL string `env:"BACKEND_URL"`
}

type PushoverConfig struct {
	Recipient string `env:"PUSHOVER_RECIPIENT"`
	Token     string `env:"PUSHOVER_TOKEN"`
}

func Load() (Config, error) {
	var c Config
	err := config.New().AddFeeder(feeder.Env{}).AddStruct(&c).Feed()
	if err != nil {
		return c, err
	}
	if c.Earshot.ListenAddr == "" {
		c.Earshot.ListenAddr = ":8080"
	}
	if c.Earshot.StorageDir == "" {
		c.Earshot.StorageDir = "/tmp"
	}
	return c, nil
}

func (c *Config) GetLogLevel() slog.Leveler {
	logLevel := strings.ToLower(c.Earshot.LogLevel)
	if logLevel == "error" {
		return slog.LevelError
	}
	if logLevel == "warning" {
		return slog.LevelWarn
	}
	if logLevel == "info" {
		return slog.LevelInfo
	}
	if logLevel == "debug" {
		return slog.LevelDebug
	}
	// default to info if unknown
	slog.With(slog.String("log_level", logLevel)).Info("Received invalid log level. Defaulting to INFO.")
	return slog.LevelInfo
}
