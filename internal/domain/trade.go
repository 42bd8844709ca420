package domain

// ExitReason codes for completed trades.
const (
	ExitReasonStopLoss   = "STOP_LOSS"
	ExitReasonTakeProfit = "TAKE_PROFIT"
	ExitReasonTimeLimit  = "TIME_LIMIT"
)

// Position is the simulator-internal open trade. It exists only between
// an entry bar and its exit bar; size is normalized to 1R.
type Position struct {
	Side        Side
	EntryPrice  float64
	EntryTimeMs int64
	EntryIndex  int
	Stop        float64
	Target      float64
}

// Risk returns the initial risk distance of the position.
func (p Position) Risk() float64 {
	if p.Side == SideLong {
		return p.EntryPrice - p.Stop
	}
	return p.Stop - p.EntryPrice
}

// Trade is a finalized position. Immutable once emitted.
type Trade struct {
	Side        Side
	EntryPrice  float64
	EntryTimeMs int64
	EntryIndex  int
	Stop        float64
	Target      float64

	ExitPrice  float64
	ExitTimeMs int64
	ExitIndex  int
	ExitReason string

	// RMultiple is realized profit or loss divided by the initial risk
	// distance, signed per direction.
	RMultiple float64

	// MAE and MFE are the worst and best unrealized excursions between
	// entry and exit, as a fraction of entry price.
	MAE float64
	MFE float64
}
