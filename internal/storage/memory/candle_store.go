package memory

import (
	"context"
	"sort"
	"sync"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// candleKey identifies one bar.
type candleKey struct {
	symbol     string
	timeframe  domain.Timeframe
	openTimeMs int64
}

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[candleKey]domain.Candle
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{data: make(map[candleKey]domain.Candle)}
}

// InsertBulk adds candles. Fails the entire batch on any duplicate.
func (s *CandleStore) InsertBulk(_ context.Context, candles []domain.Candle) error {
	if len(candles) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	batch := make(map[candleKey]struct{}, len(candles))
	for _, c := range candles {
		if c.Symbol == "" || c.Timeframe == "" {
			return storage.ErrInvalidInput
		}
		k := candleKey{c.Symbol, c.Timeframe, c.OpenTimeMs}
		if _, exists := s.data[k]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batch[k]; exists {
			return storage.ErrDuplicateKey
		}
		batch[k] = struct{}{}
	}

	for _, c := range candles {
		s.data[candleKey{c.Symbol, c.Timeframe, c.OpenTimeMs}] = c
	}
	return nil
}

// GetSeries retrieves all candles for (symbol, timeframe), ordered by
// open time ASC.
func (s *CandleStore) GetSeries(_ context.Context, symbol string, tf domain.Timeframe) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Candle
	for k, c := range s.data {
		if k.symbol == symbol && k.timeframe == tf {
			out = append(out, c)
		}
	}
	sortCandles(out)
	return out, nil
}

// GetSeriesRange retrieves candles within [start, end] (inclusive).
func (s *CandleStore) GetSeriesRange(_ context.Context, symbol string, tf domain.Timeframe, start, end int64) ([]domain.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Candle
	for k, c := range s.data {
		if k.symbol == symbol && k.timeframe == tf && k.openTimeMs >= start && k.openTimeMs <= end {
			out = append(out, c)
		}
	}
	sortCandles(out)
	return out, nil
}

func sortCandles(candles []domain.Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTimeMs < candles[j].OpenTimeMs
	})
}

var _ storage.CandleStore = (*CandleStore)(nil)
