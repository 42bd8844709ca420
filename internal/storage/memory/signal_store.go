package memory

import (
	"context"
	"sort"
	"sync"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// SignalStore is an in-memory implementation of storage.SignalStore.
type SignalStore struct {
	mu   sync.RWMutex
	data map[string]*domain.Signal // keyed by signal_id
}

// NewSignalStore creates a new in-memory signal store.
func NewSignalStore() *SignalStore {
	return &SignalStore{data: make(map[string]*domain.Signal)}
}

// Insert adds a signal. Returns ErrDuplicateKey if signal_id exists.
func (s *SignalStore) Insert(_ context.Context, sig *domain.Signal) error {
	if sig == nil || sig.SignalID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[sig.SignalID]; exists {
		return storage.ErrDuplicateKey
	}

	cp := *sig
	s.data[sig.SignalID] = &cp
	return nil
}

// GetByID retrieves a signal. Returns ErrNotFound if not exists.
func (s *SignalStore) GetByID(_ context.Context, signalID string) (*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sig, exists := s.data[signalID]
	if !exists {
		return nil, storage.ErrNotFound
	}

	cp := *sig
	return &cp, nil
}

// GetBySymbol retrieves all signals for a symbol, ordered by timestamp
// ASC, signal_id ASC.
func (s *SignalStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.Signal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.Signal
	for _, sig := range s.data {
		if sig.Symbol == symbol {
			cp := *sig
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TimestampMs != out[j].TimestampMs {
			return out[i].TimestampMs < out[j].TimestampMs
		}
		return out[i].SignalID < out[j].SignalID
	})

	return out, nil
}

var _ storage.SignalStore = (*SignalStore)(nil)
