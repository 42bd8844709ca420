package ingestion

import (
	"errors"
	"sort"

	"smc-lab/internal/domain"
)

// ErrInvalidOrdering is returned when candles are not properly ordered.
var ErrInvalidOrdering = errors.New("candles are not in deterministic order")

// SortCandles orders candles by (symbol ASC, timeframe ASC, open_time_ms ASC).
func SortCandles(candles []domain.Candle) {
	sort.Slice(candles, func(i, j int) bool {
		return compareCandles(candles[i], candles[j]) < 0
	})
}

// ValidateCandleOrdering checks if candles are strictly ordered.
// Returns ErrInvalidOrdering on out-of-order or duplicate keys.
func ValidateCandleOrdering(candles []domain.Candle) error {
	for i := 1; i < len(candles); i++ {
		if compareCandles(candles[i-1], candles[i]) >= 0 {
			return ErrInvalidOrdering
		}
	}
	return nil
}

// compareCandles returns:
//   - negative if a < b
//   - zero if a == b
//   - positive if a > b
//
// Order: (symbol ASC, timeframe ASC, open_time_ms ASC)
func compareCandles(a, b domain.Candle) int {
	if a.Symbol != b.Symbol {
		if a.Symbol < b.Symbol {
			return -1
		}
		return 1
	}
	if a.Timeframe != b.Timeframe {
		if a.Timeframe < b.Timeframe {
			return -1
		}
		return 1
	}
	if a.OpenTimeMs != b.OpenTimeMs {
		if a.OpenTimeMs < b.OpenTimeMs {
			return -1
		}
		return 1
	}
	return 0
}
