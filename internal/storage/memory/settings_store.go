package memory

import (
	"context"
	"sync"

	"smc-lab/internal/storage"
)

// SettingsStore is an in-memory implementation of storage.SettingsStore.
// Unlike the result stores, settings are mutable.
type SettingsStore struct {
	mu   sync.RWMutex
	data map[string]string
}

// NewSettingsStore creates a new in-memory settings store.
func NewSettingsStore() *SettingsStore {
	return &SettingsStore{data: make(map[string]string)}
}

// Set stores or overwrites a setting.
func (s *SettingsStore) Set(_ context.Context, key, value string) error {
	if key == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

// Get retrieves a setting. Returns ErrNotFound if not exists.
func (s *SettingsStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, exists := s.data[key]
	if !exists {
		return "", storage.ErrNotFound
	}
	return v, nil
}

// Delete removes a setting. Returns ErrNotFound if not exists.
func (s *SettingsStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[key]; !exists {
		return storage.ErrNotFound
	}
	delete(s.data, key)
	return nil
}

// List returns a copy of all settings.
func (s *SettingsStore) List(_ context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]string, len(s.data))
	for k, v := range s.data {
		out[k] = v
	}
	return out, nil
}

var _ storage.SettingsStore = (*SettingsStore)(nil)
