package ingestion

import (
	"context"
	"fmt"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// Manager orchestrates ingestion from sources to storage.
// It enforces deterministic ordering and uses the storage layer for
// duplicate rejection.
type Manager struct {
	source KlineSource
	store  storage.CandleStore
}

// ManagerOptions contains configuration for creating a Manager.
type ManagerOptions struct {
	Source KlineSource
	Store  storage.CandleStore
}

// NewManager creates a new ingestion manager.
func NewManager(opts ManagerOptions) *Manager {
	return &Manager{
		source: opts.Source,
		store:  opts.Store,
	}
}

// IngestRange fetches candles from the source and stores them.
// Candles are validated and sorted by (symbol, timeframe, open_time_ms)
// before insert. Returns count of ingested candles.
// Duplicates are rejected by the storage layer (ErrDuplicateKey).
func (m *Manager) IngestRange(ctx context.Context, symbol string, tf domain.Timeframe, from, to int64) (int, error) {
	if m.source == nil || m.store == nil {
		return 0, nil
	}

	candles, err := m.source.Fetch(ctx, symbol, tf, from, to)
	if err != nil {
		return 0, err
	}

	if len(candles) == 0 {
		return 0, nil
	}

	// Enforce deterministic ordering
	SortCandles(candles)

	if err := ValidateCandleOrdering(candles); err != nil {
		return 0, fmt.Errorf("validate fetched candles: %w", err)
	}

	if err := domain.ValidateCandles(candles); err != nil {
		return 0, fmt.Errorf("validate fetched candles: %w", err)
	}

	// Store via bulk insert - storage layer handles duplicates
	if err := m.store.InsertBulk(ctx, candles); err != nil {
		return 0, err
	}

	return len(candles), nil
}

// IngestClosed stores a single closed bar from a live stream.
func (m *Manager) IngestClosed(ctx context.Context, c domain.Candle) error {
	if m.store == nil {
		return nil
	}
	return m.store.InsertBulk(ctx, []domain.Candle{c})
}
