package memory

import (
	"context"
	"sort"
	"sync"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// BacktestStore is an in-memory implementation of storage.BacktestStore.
type BacktestStore struct {
	mu   sync.RWMutex
	data map[string]*domain.BacktestResult // keyed by run_id
}

// NewBacktestStore creates a new in-memory backtest store.
func NewBacktestStore() *BacktestStore {
	return &BacktestStore{data: make(map[string]*domain.BacktestResult)}
}

// Insert adds a run. Returns ErrDuplicateKey if run_id exists.
func (s *BacktestStore) Insert(_ context.Context, r *domain.BacktestResult) error {
	if r == nil || r.RunID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.RunID]; exists {
		return storage.ErrDuplicateKey
	}

	s.data[r.RunID] = copyResult(r)
	return nil
}

// GetByID retrieves a run. Returns ErrNotFound if not exists.
func (s *BacktestStore) GetByID(_ context.Context, runID string) (*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, exists := s.data[runID]
	if !exists {
		return nil, storage.ErrNotFound
	}
	return copyResult(r), nil
}

// GetBySymbol retrieves all runs for a symbol, ordered by start ASC,
// run_id ASC.
func (s *BacktestStore) GetBySymbol(_ context.Context, symbol string) ([]*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.BacktestResult
	for _, r := range s.data {
		if r.Symbol == symbol {
			out = append(out, copyResult(r))
		}
	}
	sortResults(out)
	return out, nil
}

// GetAll retrieves all runs.
func (s *BacktestStore) GetAll(_ context.Context) ([]*domain.BacktestResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.BacktestResult, 0, len(s.data))
	for _, r := range s.data {
		out = append(out, copyResult(r))
	}
	sortResults(out)
	return out, nil
}

func copyResult(r *domain.BacktestResult) *domain.BacktestResult {
	cp := *r
	cp.Trades = make([]domain.Trade, len(r.Trades))
	copy(cp.Trades, r.Trades)
	return &cp
}

func sortResults(results []*domain.BacktestResult) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].StartMs != results[j].StartMs {
			return results[i].StartMs < results[j].StartMs
		}
		return results[i].RunID < results[j].RunID
	})
}

var _ storage.BacktestStore = (*BacktestStore)(nil)
