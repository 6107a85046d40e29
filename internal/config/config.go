package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env file", "err", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, ErrConfig(err.Error())
	}
	if strings.TrimSpace(cfg.CommandPrefix) == "" {
		return nil, ErrConfig("COMMAND_PREFIX must not be empty")
	}
	if cfg.PlaylistLimit < 0 {
		return nil, ErrConfig("PLAYLIST_LIMIT must not be negative")
	}
	if cfg.IdleTimeout < 0 {
		return nil, ErrConfig("IDLE_TIMEOUT must not be negative")
	}

	_ = os.MkdirAll(cfg.DataDir, 0o755)
	return &cfg, nil
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IdleSeconds is IdleTimeout in whole seconds, rounded up so that only an
// explicit zero disables idle disconnects.
func (c *Config) IdleSeconds() int {
	return int((c.IdleTimeout + time.Second - 1) / time.Second)
}

type ErrConfig string

func (e ErrConfig) Error() string { return string(e) }
