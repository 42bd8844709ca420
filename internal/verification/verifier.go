// Package verification replays stored backtest runs and checks that the
// persisted trade sequence matches a fresh simulation over the same data.
package verification

import (
	"context"
	"fmt"
	"math"

	"smc-lab/internal/domain"
)

// FloatTolerance is the tolerance for float64 comparisons.
const FloatTolerance = 1e-9

// FieldDivergence represents a mismatch between stored and replayed values.
type FieldDivergence struct {
	Field    string      // field name, qualified with trade index
	Expected interface{} // stored value
	Actual   interface{} // replayed value
}

// VerificationResult contains the result of verifying a single run.
type VerificationResult struct {
	RunID          string
	Match          bool
	Divergences    []FieldDivergence
	StoredTrades   int
	ReplayedTrades int
}

// VerificationReport contains results for batch verification.
type VerificationReport struct {
	TotalRuns     int
	MatchedRuns   int
	DivergentRuns int
	Results       []VerificationResult
}

// Verifier replays runs and reports divergences.
type Verifier interface {
	// VerifyRun verifies a single run by ID: it loads the stored run,
	// re-executes the simulation with the same policy over the same
	// candle range, and compares every trade field.
	VerifyRun(ctx context.Context, runID string) (*VerificationResult, error)

	// VerifyAll verifies all stored runs.
	VerifyAll(ctx context.Context) (*VerificationReport, error)
}

// CompareTrades compares stored and replayed trade sequences and returns
// divergences. Uses FloatTolerance for float64 comparisons.
func CompareTrades(stored, replayed []domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence

	if len(stored) != len(replayed) {
		divergences = append(divergences, FieldDivergence{
			Field:    "len(Trades)",
			Expected: len(stored),
			Actual:   len(replayed),
		})
	}

	n := len(stored)
	if len(replayed) < n {
		n = len(replayed)
	}

	for i := 0; i < n; i++ {
		divergences = append(divergences, compareTrade(i, stored[i], replayed[i])...)
	}

	return divergences
}

// compareTrade compares one trade pair field by field.
func compareTrade(i int, stored, replayed domain.Trade) []FieldDivergence {
	var divergences []FieldDivergence

	diverge := func(field string, expected, actual interface{}) {
		divergences = append(divergences, FieldDivergence{
			Field:    fmt.Sprintf("Trades[%d].%s", i, field),
			Expected: expected,
			Actual:   actual,
		})
	}

	if stored.Side != replayed.Side {
		diverge("Side", stored.Side, replayed.Side)
	}
	if !floatEquals(stored.EntryPrice, replayed.EntryPrice) {
		diverge("EntryPrice", stored.EntryPrice, replayed.EntryPrice)
	}
	if stored.EntryTimeMs != replayed.EntryTimeMs {
		diverge("EntryTimeMs", stored.EntryTimeMs, replayed.EntryTimeMs)
	}
	if stored.EntryIndex != replayed.EntryIndex {
		diverge("EntryIndex", stored.EntryIndex, replayed.EntryIndex)
	}
	if !floatEquals(stored.Stop, replayed.Stop) {
		diverge("Stop", stored.Stop, replayed.Stop)
	}
	if !floatEquals(stored.Target, replayed.Target) {
		diverge("Target", stored.Target, replayed.Target)
	}
	if !floatEquals(stored.ExitPrice, replayed.ExitPrice) {
		diverge("ExitPrice", stored.ExitPrice, replayed.ExitPrice)
	}
	if stored.ExitTimeMs != replayed.ExitTimeMs {
		diverge("ExitTimeMs", stored.ExitTimeMs, replayed.ExitTimeMs)
	}
	if stored.ExitIndex != replayed.ExitIndex {
		diverge("ExitIndex", stored.ExitIndex, replayed.ExitIndex)
	}
	if stored.ExitReason != replayed.ExitReason {
		diverge("ExitReason", stored.ExitReason, replayed.ExitReason)
	}
	if !floatEquals(stored.RMultiple, replayed.RMultiple) {
		diverge("RMultiple", stored.RMultiple, replayed.RMultiple)
	}
	if !floatEquals(stored.MAE, replayed.MAE) {
		diverge("MAE", stored.MAE, replayed.MAE)
	}
	if !floatEquals(stored.MFE, replayed.MFE) {
		diverge("MFE", stored.MFE, replayed.MFE)
	}

	return divergences
}

// floatEquals compares two float64 values within FloatTolerance.
func floatEquals(a, b float64) bool {
	return math.Abs(a-b) <= FloatTolerance
}
