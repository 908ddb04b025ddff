package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/jwebster45206/story-graph/pkg/state"
)

// MockStorage is an in-memory Storage for tests. Saves are kept as JSON so
// a loaded state never aliases the saved one.
type MockStorage struct {
	mu        sync.RWMutex
	saves     map[string][]byte
	saveCount int
	pingError error
	saveError error
}

// Ensure MockStorage implements Storage interface
var _ Storage = (*MockStorage)(nil)

// NewMockStorage creates a new mock storage
func NewMockStorage() *MockStorage {
	return &MockStorage{
		saves: make(map[string][]byte),
	}
}

// SetPingError configures the mock to fail on ping with the given error
func (m *MockStorage) SetPingError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pingError = err
}

// SetSaveError makes every following save fail with err. Pass nil to reset.
func (m *MockStorage) SetSaveError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveError = err
}

// PutRaw stores raw bytes in a slot, e.g. to simulate a corrupt save.
func (m *MockStorage) PutRaw(slot string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves[slot] = data
}

// SaveCount returns how many successful saves have been made.
func (m *MockStorage) SaveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.saveCount
}

// Ping mocks storage ping
func (m *MockStorage) Ping(ctx context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pingError
}

// Close mocks storage close
func (m *MockStorage) Close() error {
	return nil
}

// SaveGameState mocks saving player state
func (m *MockStorage) SaveGameState(ctx context.Context, slot string, ps *state.PlayerState) error {
	if ps == nil {
		return errors.New("player state cannot be nil")
	}
	data, err := json.Marshal(ps)
	if err != nil {
		return fmt.Errorf("failed to marshal player state: %w", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveError != nil {
		return m.saveError
	}
	m.saves[slot] = data
	m.saveCount++
	return nil
}

// LoadGameState mocks loading player state
func (m *MockStorage) LoadGameState(ctx context.Context, slot string) (*state.PlayerState, error) {
	m.mu.RLock()
	data, exists := m.saves[slot]
	m.mu.RUnlock()
	if !exists {
		return nil, nil // Return nil for not found
	}

	var ps state.PlayerState
	if err := json.Unmarshal(data, &ps); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSave, err)
	}
	return &ps, nil
}

// DeleteGameState mocks deleting a save
func (m *MockStorage) DeleteGameState(ctx context.Context, slot string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.saves, slot)
	return nil
}
