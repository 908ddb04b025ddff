package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jwebster45206/story-graph/internal/config"
	"github.com/jwebster45206/story-graph/pkg/storage"
)

const (
	redisMaxRetries = 5
	redisRetryDelay = 500 * time.Millisecond
)

// Open returns the save backend selected by cfg, connected and ready.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Storage, error) {
	switch cfg.SaveBackend {
	case config.BackendFile, "":
		fs := NewFileStore(cfg.SavePath, logger)
		if err := fs.Ping(ctx); err != nil {
			return nil, err
		}
		return fs, nil

	case config.BackendRedis:
		rs, err := NewRedisStorage(cfg.RedisURL, logger)
		if err != nil {
			return nil, err
		}
		if err := rs.WaitForConnection(ctx, redisMaxRetries, redisRetryDelay); err != nil {
			_ = rs.Close()
			return nil, err
		}
		return rs, nil

	case config.BackendSQLite:
		return OpenSQLite(cfg.SQLitePath, logger)

	default:
		return nil, fmt.Errorf("unknown save backend %q", cfg.SaveBackend)
	}
}
