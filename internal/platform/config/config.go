// Package config provides environment-based configuration.
//
// Loads from .env file (godotenv), maps to Config struct via go-simpler/env struct tags.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" default:"development"`
	Port        string `env:"PORT" default:"8080"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`
	LogLevel    string `env:"LOG_LEVEL" default:"info"`
	LogFormat   string `env:"LOG_FORMAT" default:"text"`

	// InstanceID distinguishes this process in the instance registry and
	// in cross-instance event fan-out. Generated when not set.
	InstanceID string `env:"INSTANCE_ID"`

	CoPlayEnabled bool `env:"COPLAY_ENABLED" default:"true"`

	IdleSessionTimeout time.Duration `env:"IDLE_SESSION_TIMEOUT" default:"10m"`
	IdleScanInterval   time.Duration `env:"IDLE_SCAN_INTERVAL" default:"1m"`

	MaxWebSocketConnections int `env:"MAX_WEBSOCKET_CONNECTIONS" default:"10000"`
	MaxClientsPerChannel    int `env:"MAX_CLIENTS_PER_CHANNEL" default:"256"`

	InputRatePerSecond float64 `env:"INPUT_RATE_PER_SECOND" default:"120"`
	InputRateBurst     int     `env:"INPUT_RATE_BURST" default:"240"`

	RelayReplyTimeout time.Duration `env:"RELAY_REPLY_TIMEOUT" default:"10s"`
	SaveStateTTL      time.Duration `env:"SAVE_STATE_TTL" default:"168h"` // 7 days

	HistoryRetentionDays int `env:"HISTORY_RETENTION_DAYS" default:"90"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if cfg.InstanceID == "" {
		cfg.InstanceID = uuid.NewString()
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL": cfg.DatabaseURL,
		"REDIS_URL":    cfg.RedisURL,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if cfg.IdleSessionTimeout <= 0 {
		return fmt.Errorf("IDLE_SESSION_TIMEOUT must be positive")
	}
	if cfg.IdleScanInterval <= 0 {
		return fmt.Errorf("IDLE_SCAN_INTERVAL must be positive")
	}
	if cfg.RelayReplyTimeout <= 0 {
		return fmt.Errorf("RELAY_REPLY_TIMEOUT must be positive")
	}
	if cfg.InputRatePerSecond <= 0 {
		return fmt.Errorf("INPUT_RATE_PER_SECOND must be positive")
	}
	if cfg.HistoryRetentionDays <= 0 {
		return fmt.Errorf("HISTORY_RETENTION_DAYS must be positive")
	}

	if cfg.IsProduction() {
		lowered := strings.ToLower(cfg.DatabaseURL)
		for _, mode := range []string{"disable", "allow"} {
			if strings.Contains(lowered, "sslmode="+mode) {
				return fmt.Errorf("DATABASE_URL uses sslmode=%s which is not allowed in production", mode)
			}
		}
	}

	return nil
}

// IsProduction reports whether the app runs with production hardening.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
