package structure

import "smc-lab/internal/domain"

// DetectLiquidityPools finds local swing extremes where resting stop
// orders are assumed to cluster.
//
// A bar is a swing high when its high is the maximum inside a symmetric
// window around it and exceeds the window's minimum low by the swing
// threshold fraction; swing lows are symmetric. Swing lows carry bullish
// polarity (sell-side liquidity below price), swing highs bearish.
func DetectLiquidityPools(bars []domain.Candle, cfg domain.DetectorConfig) []domain.StructuralZone {
	w := cfg.SwingWindow
	if w <= 0 || len(bars) < 2*w+1 {
		return nil
	}

	var zones []domain.StructuralZone
	for i := w; i < len(bars)-w; i++ {
		isHigh, isLow := true, true
		winHigh, winLow := bars[i-w].High, bars[i-w].Low
		for j := i - w; j <= i+w; j++ {
			if bars[j].High > bars[i].High {
				isHigh = false
			}
			if bars[j].Low < bars[i].Low {
				isLow = false
			}
			if bars[j].High > winHigh {
				winHigh = bars[j].High
			}
			if bars[j].Low < winLow {
				winLow = bars[j].Low
			}
		}

		if isHigh && winLow > 0 && (bars[i].High-winLow)/winLow*100 >= cfg.SwingThresholdPct {
			zones = append(zones, domain.StructuralZone{
				Type:       domain.ZoneLiquidityPool,
				Polarity:   domain.PolarityBearish,
				Top:        bars[i].High,
				Bottom:     bars[i].High,
				StartIndex: i,
				EndIndex:   i,
				MaxAgeBars: cfg.ZoneMaxAgeBars,
			})
		}
		if isLow && bars[i].Low > 0 && (winHigh-bars[i].Low)/bars[i].Low*100 >= cfg.SwingThresholdPct {
			zones = append(zones, domain.StructuralZone{
				Type:       domain.ZoneLiquidityPool,
				Polarity:   domain.PolarityBullish,
				Top:        bars[i].Low,
				Bottom:     bars[i].Low,
				StartIndex: i,
				EndIndex:   i,
				MaxAgeBars: cfg.ZoneMaxAgeBars,
			})
		}
	}
	return zones
}
