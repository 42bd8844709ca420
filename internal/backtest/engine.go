// Package backtest replays a candle series through a deterministic
// position-lifecycle simulator.
package backtest

import (
	"log"

	"smc-lab/internal/domain"
)

// EngineConfig parameterizes the simulator.
type EngineConfig struct {
	// MaxHoldBars forces a TIME_LIMIT exit after this many bars in a
	// position. Zero means positions run until stop, target or end of data.
	MaxHoldBars int
}

// Engine runs the FLAT → OPEN → FLAT state machine bar by bar. At most
// one position is open at any time. Each run owns its own state; engines
// are not reused across runs.
type Engine struct {
	policy EntryPolicy
	cfg    EngineConfig
	logger *log.Logger
}

// NewEngine creates a simulator around an entry policy.
func NewEngine(policy EntryPolicy, cfg EngineConfig, logger *log.Logger) *Engine {
	return &Engine{policy: policy, cfg: cfg, logger: logger}
}

// Run replays the series and returns the completed trades in entry
// order. Running twice on identical input produces identical output.
func (e *Engine) Run(bars []domain.Candle) []domain.Trade {
	var trades []domain.Trade

	for i := 0; i < len(bars); i++ {
		dec := e.policy.OnBar(bars, i)
		if !dec.Enter {
			continue
		}

		pos := domain.Position{
			Side:        dec.Side,
			EntryPrice:  bars[i].Close,
			EntryTimeMs: bars[i].OpenTimeMs,
			EntryIndex:  i,
			Stop:        dec.Stop,
			Target:      dec.Target,
		}
		if pos.Risk() <= 0 {
			// Degenerate entry; never let it reach R-multiple math.
			if e.logger != nil {
				e.logger.Printf("skipping entry at bar %d: non-positive risk", i)
			}
			continue
		}

		trade, exitIndex := e.simulate(bars, pos)
		trades = append(trades, trade)

		// Resume scanning after the exit bar.
		i = exitIndex
	}

	return trades
}

// simulate walks an open position forward until an exit triggers.
// Within a single bar the stop-loss is checked before the take-profit:
// the conservative assumption is that adverse excursion happens first.
func (e *Engine) simulate(bars []domain.Candle, pos domain.Position) (domain.Trade, int) {
	mae, mfe := 0.0, 0.0

	for j := pos.EntryIndex + 1; j < len(bars); j++ {
		bar := bars[j]
		updateExcursions(&mae, &mfe, pos, bar)

		if stopHit(pos, bar) {
			return finalize(pos, pos.Stop, bar.OpenTimeMs, j, domain.ExitReasonStopLoss, mae, mfe), j
		}
		if targetHit(pos, bar) {
			return finalize(pos, pos.Target, bar.OpenTimeMs, j, domain.ExitReasonTakeProfit, mae, mfe), j
		}
		if e.cfg.MaxHoldBars > 0 && j-pos.EntryIndex >= e.cfg.MaxHoldBars {
			return finalize(pos, bar.Close, bar.OpenTimeMs, j, domain.ExitReasonTimeLimit, mae, mfe), j
		}
	}

	// End of data: close at the final bar.
	last := len(bars) - 1
	return finalize(pos, bars[last].Close, bars[last].OpenTimeMs, last, domain.ExitReasonTimeLimit, mae, mfe), last
}

// stopHit reports an intrabar stop-loss breach.
func stopHit(pos domain.Position, bar domain.Candle) bool {
	if pos.Side == domain.SideLong {
		return bar.Low <= pos.Stop
	}
	return bar.High >= pos.Stop
}

// targetHit reports an intrabar take-profit breach.
func targetHit(pos domain.Position, bar domain.Candle) bool {
	if pos.Side == domain.SideLong {
		return bar.High >= pos.Target
	}
	return bar.Low <= pos.Target
}

// updateExcursions tracks the worst and best unrealized excursions as a
// fraction of entry price.
func updateExcursions(mae, mfe *float64, pos domain.Position, bar domain.Candle) {
	var adverse, favorable float64
	if pos.Side == domain.SideLong {
		adverse = (pos.EntryPrice - bar.Low) / pos.EntryPrice
		favorable = (bar.High - pos.EntryPrice) / pos.EntryPrice
	} else {
		adverse = (bar.High - pos.EntryPrice) / pos.EntryPrice
		favorable = (pos.EntryPrice - bar.Low) / pos.EntryPrice
	}
	if adverse > *mae {
		*mae = adverse
	}
	if favorable > *mfe {
		*mfe = favorable
	}
}

// finalize turns an exited position into an immutable trade record.
func finalize(pos domain.Position, exitPrice float64, exitTimeMs int64, exitIndex int, reason string, mae, mfe float64) domain.Trade {
	var realized float64
	if pos.Side == domain.SideLong {
		realized = exitPrice - pos.EntryPrice
	} else {
		realized = pos.EntryPrice - exitPrice
	}

	return domain.Trade{
		Side:        pos.Side,
		EntryPrice:  pos.EntryPrice,
		EntryTimeMs: pos.EntryTimeMs,
		EntryIndex:  pos.EntryIndex,
		Stop:        pos.Stop,
		Target:      pos.Target,

		ExitPrice:  exitPrice,
		ExitTimeMs: exitTimeMs,
		ExitIndex:  exitIndex,
		ExitReason: reason,

		RMultiple: realized / pos.Risk(),
		MAE:       mae,
		MFE:       mfe,
	}
}
