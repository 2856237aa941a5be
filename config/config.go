// Package config loads the coordinator's configuration from the
// environment, with an optional .env file for development.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config is the full runtime configuration.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `env:"DIPCOORD_ADDR" envDefault:":8080"`
	// DatabasePath is the SQLite database file.
	DatabasePath string `env:"DIPCOORD_DB_PATH" envDefault:"dipcoord.db"`
	// EngineURL is the base URL of the adjudication service.
	EngineURL string `env:"DIPCOORD_ENGINE_URL" envDefault:"http://localhost:8081"`
	// EngineTimeout bounds each adjudication call.
	EngineTimeout time.Duration `env:"DIPCOORD_ENGINE_TIMEOUT" envDefault:"30s"`
	// SweepInterval is how often due phases are checked.
	SweepInterval time.Duration `env:"DIPCOORD_SWEEP_INTERVAL" envDefault:"1m"`
	LogLevel      string        `env:"DIPCOORD_LOG_LEVEL" envDefault:"info"`

	// FCMServerKey enables push notifications when set.
	FCMServerKey string `env:"DIPCOORD_FCM_SERVER_KEY"`
	// FCMTokensJSON maps user ids to device tokens, as JSON:
	// {"user-id":["token",...]}.
	FCMTokensJSON string `env:"DIPCOORD_FCM_TOKENS"`
	// SendGridKey enables mail notifications when set.
	SendGridKey  string `env:"DIPCOORD_SENDGRID_KEY"`
	MailFromName string `env:"DIPCOORD_MAIL_FROM_NAME" envDefault:"dipcoord"`
	MailFromAddr string `env:"DIPCOORD_MAIL_FROM_ADDR"`
	// MailAddressesJSON maps user ids to addresses, as JSON:
	// {"user-id":{"Name":"...","Addr":"..."}}.
	MailAddressesJSON string `env:"DIPCOORD_MAIL_ADDRESSES"`

	// BaseURL is the public URL used in feed links.
	BaseURL string `env:"DIPCOORD_BASE_URL" envDefault:"http://localhost:8080"`
}

// Load reads .env if present, then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("sweep interval %v must be positive", cfg.SweepInterval)
	}
	if cfg.EngineTimeout <= 0 {
		return Config{}, fmt.Errorf("engine timeout %v must be positive", cfg.EngineTimeout)
	}
	if cfg.SendGridKey != "" && cfg.MailFromAddr == "" {
		return Config{}, fmt.Errorf("DIPCOORD_MAIL_FROM_ADDR is required when mail is enabled")
	}
	return cfg, nil
}

// SlogLevel maps the configured level name to a slog level.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
