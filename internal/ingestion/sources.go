package ingestion

import (
	"context"

	"smc-lab/internal/domain"
)

// KlineSource provides historical candles from external sources.
type KlineSource interface {
	// Fetch returns candles for (symbol, timeframe) with open time within
	// [from, to] (inclusive). Candles may be unordered; Manager enforces
	// deterministic ordering.
	Fetch(ctx context.Context, symbol string, tf domain.Timeframe, from, to int64) ([]domain.Candle, error)
}
