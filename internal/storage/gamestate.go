package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jwebster45206/story-graph/internal/logger"
	"github.com/jwebster45206/story-graph/pkg/state"
	"github.com/jwebster45206/story-graph/pkg/storage"
	"github.com/redis/go-redis/v9"
)

// Player state operations (Redis-backed)

func (r *RedisStorage) SaveGameState(ctx context.Context, slot string, ps *state.PlayerState) error {
	data, err := encodeState(ps)
	if err != nil {
		logger.WithError(r.logger, err).Error("Failed to marshal player state", "slot", slot)
		return err
	}

	// SET replaces the value atomically; readers never see a partial save
	if err := r.client.Set(ctx, redisKey(slot), data, 0).Err(); err != nil {
		logger.WithError(r.logger, err).Error("Failed to save player state", "slot", slot)
		return fmt.Errorf("failed to save player state: %w", err)
	}

	return nil
}

func (r *RedisStorage) LoadGameState(ctx context.Context, slot string) (*state.PlayerState, error) {
	data, err := r.client.Get(ctx, redisKey(slot)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Return nil for not found
		}
		logger.WithError(r.logger, err).Error("Failed to load player state", "slot", slot)
		return nil, fmt.Errorf("failed to load player state: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	ps, err := decodeState(data)
	if err != nil {
		logger.WithError(r.logger, err).Warn("Discarding unreadable save", "slot", slot)
		return nil, err
	}
	return ps, nil
}

func (r *RedisStorage) DeleteGameState(ctx context.Context, slot string) error {
	if err := r.client.Del(ctx, redisKey(slot)).Err(); err != nil {
		logger.WithError(r.logger, err).Error("Failed to delete player state", "slot", slot)
		return fmt.Errorf("failed to delete player state: %w", err)
	}
	return nil
}

// encodeState stamps UpdatedAt and marshals the state for any backend.
func encodeState(ps *state.PlayerState) ([]byte, error) {
	if ps == nil {
		return nil, errors.New("player state cannot be nil")
	}
	ps.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(ps, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal player state: %w", err)
	}
	return data, nil
}

// decodeState unmarshals a save, wrapping failures in storage.ErrCorruptSave.
func decodeState(data []byte) (*state.PlayerState, error) {
	var ps state.PlayerState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("%w: %v", storage.ErrCorruptSave, err)
	}
	if ps.CurrentNode == "" {
		return nil, fmt.Errorf("%w: missing current_node", storage.ErrCorruptSave)
	}
	if ps.Flags == nil {
		ps.Flags = make(map[string]bool)
	}
	if ps.Log == nil {
		ps.Log = make([]state.LogEntry, 0)
	}
	if ps.Language == "" {
		ps.Language = state.DefaultLanguage
	}
	return &ps, nil
}
