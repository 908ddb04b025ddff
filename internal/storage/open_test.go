package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jwebster45206/story-graph/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	mr := miniredis.RunT(t)
	dir := t.TempDir()

	tests := []struct {
		name    string
		cfg     config.Config
		want    any
		wantErr bool
	}{
		{"file", config.Config{SaveBackend: config.BackendFile, SavePath: filepath.Join(dir, "saves")}, &FileStore{}, false},
		{"redis", config.Config{SaveBackend: config.BackendRedis, RedisURL: mr.Addr()}, &RedisStorage{}, false},
		{"sqlite", config.Config{SaveBackend: config.BackendSQLite, SQLitePath: filepath.Join(dir, "saves.db")}, &SQLiteStore{}, false},
		{"unknown", config.Config{SaveBackend: "tape"}, nil, true},
		{"sqlite without path", config.Config{SaveBackend: config.BackendSQLite}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store, err := Open(context.Background(), &tt.cfg, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			t.Cleanup(func() { _ = store.Close() })
			assert.IsType(t, tt.want, store)
		})
	}
}

func TestOpen_RedisUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Open(ctx, &config.Config{SaveBackend: config.BackendRedis, RedisURL: addr}, testLogger())
	assert.Error(t, err)
}
