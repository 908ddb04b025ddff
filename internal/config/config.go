package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Save backends.
const (
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevelRaw string `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string `env:"LOG_FILE" envDefault:"story.log"` // The console owns stdout, so logs go here
	LogLevel    slog.Level

	SaveBackend string `env:"SAVE_BACKEND" envDefault:"file"`
	SavePath    string `env:"SAVE_PATH" envDefault:"saves"` // Directory for the file backend
	SaveSlot    string `env:"SAVE_SLOT" envDefault:"default"`
	RedisURL    string `env:"REDIS_URL" envDefault:"localhost:6379"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"story.db"`

	StoryPath  string        `env:"STORY_PATH"` // Optional override of the embedded story
	Debug      bool          `env:"STORY_DEBUG"`
	DebugDelay time.Duration `env:"STORY_DEBUG_DELAY" envDefault:"5s"`
	Language   string        `env:"STORY_LANG" envDefault:"en"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LogLevel = parseLogLevel(cfg.LogLevelRaw)
	cfg.SaveBackend = strings.ToLower(strings.TrimSpace(cfg.SaveBackend))

	switch cfg.SaveBackend {
	case BackendFile, BackendRedis, BackendSQLite:
	default:
		return nil, fmt.Errorf("unknown SAVE_BACKEND %q: want file, redis or sqlite", cfg.SaveBackend)
	}
	if cfg.DebugDelay <= 0 {
		return nil, fmt.Errorf("STORY_DEBUG_DELAY must be positive, got %s", cfg.DebugDelay)
	}
	return &cfg, nil
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
