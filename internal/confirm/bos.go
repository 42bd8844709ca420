package confirm

import "smc-lab/internal/domain"

// swingLevels returns the most recent swing high and low strictly before
// the last bar, using a symmetric fractal window. A missing level is
// reported as (0, false).
func swingLevels(bars []domain.Candle, window int) (high float64, haveHigh bool, low float64, haveLow bool) {
	if window <= 0 || len(bars) < 2*window+2 {
		return 0, false, 0, false
	}

	// Exclude the last bar: it is the one being confirmed.
	for i := len(bars) - 2 - window; i >= window; i-- {
		isHigh, isLow := true, true
		for j := i - window; j <= i+window; j++ {
			if bars[j].High > bars[i].High {
				isHigh = false
			}
			if bars[j].Low < bars[i].Low {
				isLow = false
			}
		}
		if isHigh && !haveHigh {
			high, haveHigh = bars[i].High, true
		}
		if isLow && !haveLow {
			low, haveLow = bars[i].Low, true
		}
		if haveHigh && haveLow {
			break
		}
	}
	return high, haveHigh, low, haveLow
}

// DetectBOS reports a break of structure on the last bar: a close beyond
// the most recent swing level in that direction. Nil when none occurred.
func DetectBOS(bars []domain.Candle, window int) *domain.BOSEvent {
	if len(bars) == 0 {
		return nil
	}
	high, haveHigh, low, haveLow := swingLevels(bars, window)
	last := bars[len(bars)-1]
	idx := len(bars) - 1

	if haveHigh && high > 0 && last.Close > high {
		return &domain.BOSEvent{
			TimestampMs: last.OpenTimeMs,
			Direction:   domain.PolarityBullish,
			BarIndex:    idx,
			Magnitude:   (last.Close - high) / high,
		}
	}
	if haveLow && low > 0 && last.Close < low {
		return &domain.BOSEvent{
			TimestampMs: last.OpenTimeMs,
			Direction:   domain.PolarityBearish,
			BarIndex:    idx,
			Magnitude:   (low - last.Close) / low,
		}
	}
	return nil
}

// DetectSweep reports a liquidity sweep on the last bar: a wick beyond a
// swing level with the close back on the original side. A sweep of the
// lows is bullish (stop hunt below), of the highs bearish.
func DetectSweep(bars []domain.Candle, window int) *domain.LiquiditySweep {
	if len(bars) == 0 {
		return nil
	}
	high, haveHigh, low, haveLow := swingLevels(bars, window)
	last := bars[len(bars)-1]
	idx := len(bars) - 1

	if haveLow && low > 0 && last.Low < low && last.Close > low {
		return &domain.LiquiditySweep{
			TimestampMs: last.OpenTimeMs,
			Direction:   domain.PolarityBullish,
			BarIndex:    idx,
			SweptLevel:  low,
			Magnitude:   (low - last.Low) / low,
		}
	}
	if haveHigh && high > 0 && last.High > high && last.Close < high {
		return &domain.LiquiditySweep{
			TimestampMs: last.OpenTimeMs,
			Direction:   domain.PolarityBearish,
			BarIndex:    idx,
			SweptLevel:  high,
			Magnitude:   (last.High - high) / high,
		}
	}
	return nil
}
