package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/jwebster45206/story-graph/internal/logger"
	"github.com/jwebster45206/story-graph/pkg/state"
	"github.com/jwebster45206/story-graph/pkg/storage"
	_ "modernc.org/sqlite"
)

const (
	timeFormat = time.RFC3339Nano

	createSavesTable = `CREATE TABLE IF NOT EXISTS saves (
	slot       TEXT PRIMARY KEY,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

	upsertSave = `INSERT INTO saves (slot, data, updated_at) VALUES (?, ?, ?)
ON CONFLICT(slot) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`
)

// SQLiteStore keeps saves in a single SQLite table keyed by slot.
type SQLiteStore struct {
	sqlDB  *sql.DB
	logger *slog.Logger
}

// Ensure SQLiteStore implements Storage interface
var _ storage.Storage = (*SQLiteStore)(nil)

// OpenSQLite opens (and if needed creates) a SQLite save database at path.
func OpenSQLite(path string, logger *slog.Logger) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = filepath.Clean(path)
	}
	dsn += "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every connection would otherwise get its own empty database
		sqlDB.SetMaxOpenConns(1)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(createSavesTable); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create saves table: %w", err)
	}

	return &SQLiteStore{sqlDB: sqlDB, logger: logger}, nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("sqlite ping failed: %w", err)
	}
	return nil
}

// Close closes the underlying SQLite database.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) SaveGameState(ctx context.Context, slot string, ps *state.PlayerState) error {
	data, err := encodeState(ps)
	if err != nil {
		return err
	}
	if _, err := s.sqlDB.ExecContext(ctx, upsertSave, slot, string(data), ps.UpdatedAt.Format(timeFormat)); err != nil {
		logger.WithError(s.logger, err).Error("Failed to save player state", "slot", slot)
		return fmt.Errorf("failed to save player state: %w", err)
	}
	return nil
}

func (s *SQLiteStore) LoadGameState(ctx context.Context, slot string) (*state.PlayerState, error) {
	var data string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT data FROM saves WHERE slot = ?`, slot).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Return nil for not found
		}
		return nil, fmt.Errorf("failed to load player state: %w", err)
	}

	ps, err := decodeState([]byte(data))
	if err != nil {
		logger.WithError(s.logger, err).Warn("Discarding unreadable save", "slot", slot)
		return nil, err
	}
	return ps, nil
}

func (s *SQLiteStore) DeleteGameState(ctx context.Context, slot string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM saves WHERE slot = ?`, slot); err != nil {
		return fmt.Errorf("failed to delete player state: %w", err)
	}
	return nil
}
