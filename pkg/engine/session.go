package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/jwebster45206/story-graph/pkg/state"
	"github.com/jwebster45206/story-graph/pkg/storage"
)

// Load reads the saved player state for the interpreter's slot. It returns
// (nil, nil) when there is no save. A save that cannot be decoded, or that
// points at a node the story no longer has, is deleted and reported with an
// error wrapping storage.ErrCorruptSave so the caller can start fresh.
func (i *Interpreter) Load(ctx context.Context) (*state.PlayerState, error) {
	if i.store == nil {
		return nil, nil
	}

	ps, err := i.store.LoadGameState(ctx, i.slot)
	if err != nil {
		if errors.Is(err, storage.ErrCorruptSave) {
			return nil, i.discard(ctx, err)
		}
		return nil, fmt.Errorf("failed to load save: %w", err)
	}
	if ps == nil {
		return nil, nil
	}

	if _, ok := i.story.Node(ps.CurrentNode); !ok {
		return nil, i.discard(ctx, fmt.Errorf("%w: saved node %q is not in the story", storage.ErrCorruptSave, ps.CurrentNode))
	}
	return ps, nil
}

// Resume loads and begins the saved session. It reports false when there was
// nothing to resume.
func (i *Interpreter) Resume(ctx context.Context) (bool, error) {
	ps, err := i.Load(ctx)
	if err != nil || ps == nil {
		return false, err
	}
	if err := i.Begin(ctx, ps); err != nil {
		return false, err
	}
	return true, nil
}

func (i *Interpreter) discard(ctx context.Context, cause error) error {
	i.baseLogger.Warn("Discarding unreadable save, starting fresh", "slot", i.slot, "error", cause)
	if err := i.store.DeleteGameState(ctx, i.slot); err != nil {
		return fmt.Errorf("failed to delete unreadable save: %w", err)
	}
	return cause
}
