package stub

import (
	"context"

	"smc-lab/internal/domain"
)

// StubKlineSource returns fixed in-memory candles for testing.
// Candles can be intentionally unordered to test sorting.
// Implements ingestion.KlineSource interface.
type StubKlineSource struct {
	candles []domain.Candle
}

// NewStubKlineSource creates a new stub kline source with the given candles.
func NewStubKlineSource(candles []domain.Candle) *StubKlineSource {
	return &StubKlineSource{candles: candles}
}

// Fetch returns candles matching the symbol, timeframe and time range.
func (s *StubKlineSource) Fetch(_ context.Context, symbol string, tf domain.Timeframe, from, to int64) ([]domain.Candle, error) {
	var result []domain.Candle
	for _, c := range s.candles {
		if c.Symbol == symbol && c.Timeframe == tf && c.OpenTimeMs >= from && c.OpenTimeMs <= to {
			result = append(result, c)
		}
	}
	return result, nil
}
