package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/story-graph/internal/logger"
	"github.com/jwebster45206/story-graph/pkg/state"
	"github.com/jwebster45206/story-graph/pkg/storage"
)

// FileStore keeps one JSON file per slot in a directory. Writes go to a temp
// file in the same directory which is synced and then renamed over the save.
type FileStore struct {
	dir    string
	logger *slog.Logger
}

// Ensure FileStore implements Storage interface
var _ storage.Storage = (*FileStore)(nil)

// NewFileStore creates a file store rooted at dir. The directory is created on first save.
func NewFileStore(dir string, logger *slog.Logger) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{dir: dir, logger: logger}
}

// Path returns the save file path for a slot.
func (f *FileStore) Path(slot string) string {
	return filepath.Join(f.dir, slotFileName(slot))
}

func (f *FileStore) Ping(ctx context.Context) error {
	info, err := os.Stat(f.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil // Created on first save
	}
	if err != nil {
		return fmt.Errorf("save directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("save path %s is not a directory", f.dir)
	}
	return nil
}

func (f *FileStore) Close() error {
	return nil
}

func (f *FileStore) SaveGameState(ctx context.Context, slot string, ps *state.PlayerState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := encodeState(ps)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create save directory: %w", err)
	}

	path := f.Path(slot)
	tmp, err := os.CreateTemp(f.dir, "."+slotFileName(slot)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp save file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// No-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write save file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync save file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close save file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace save file: %w", err)
	}

	f.logger.Debug("Saved player state", "slot", slot, "path", path, "node", ps.CurrentNode)
	return nil
}

func (f *FileStore) LoadGameState(ctx context.Context, slot string) (*state.PlayerState, error) {
	path := f.Path(slot)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil // Return nil for not found
		}
		return nil, fmt.Errorf("failed to read save file %s: %w", path, err)
	}

	ps, err := decodeState(data)
	if err != nil {
		logger.WithError(f.logger, err).Warn("Discarding unreadable save", "path", path)
		return nil, err
	}
	return ps, nil
}

func (f *FileStore) DeleteGameState(ctx context.Context, slot string) error {
	err := os.Remove(f.Path(slot))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to delete save file: %w", err)
	}
	return nil
}

// slotFileName maps a slot to a safe file name.
func slotFileName(slot string) string {
	slot = strings.TrimSpace(slot)
	if slot == "" {
		slot = "default"
	}
	slot = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, slot)
	return slot + ".json"
}
