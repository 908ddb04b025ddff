package storage

import (
	"context"
	"errors"

	"github.com/jwebster45206/story-graph/pkg/state"
)

// ErrCorruptSave is wrapped by LoadGameState when a save exists but cannot be decoded.
var ErrCorruptSave = errors.New("corrupt save")

// Storage persists player state, one save per slot.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// SaveGameState must complete the write before returning. A failed write
	// leaves the previous save intact.
	SaveGameState(ctx context.Context, slot string, ps *state.PlayerState) error
	// LoadGameState returns (nil, nil) when no save exists.
	LoadGameState(ctx context.Context, slot string) (*state.PlayerState, error)
	DeleteGameState(ctx context.Context, slot string) error
}
