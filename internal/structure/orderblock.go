package structure

import "smc-lab/internal/domain"

// DetectOrderBlocks flags bars that precede a strong opposite-direction
// move on expanded volume.
//
// A bullish order block is a bearish-body bar whose successor closes
// bullish above the bar's high while the bar's volume exceeds its
// trailing rolling average by the configured ratio; the bearish rule is
// symmetric. Each qualifying bar yields exactly one zone and zones are
// never merged.
func DetectOrderBlocks(bars []domain.Candle, cfg domain.DetectorConfig) []domain.StructuralZone {
	if len(bars) < 2 {
		return nil
	}

	start := len(bars) - 1 - cfg.OrderBlockLookback
	if cfg.OrderBlockLookback <= 0 || start < cfg.VolumeAvgPeriod {
		start = cfg.VolumeAvgPeriod
	}

	var zones []domain.StructuralZone
	for i := start; i < len(bars)-1; i++ {
		ratio := trailingVolumeRatio(bars, i, cfg.VolumeAvgPeriod)
		if ratio < cfg.VolumeRatioThreshold {
			continue
		}

		cur, next := bars[i], bars[i+1]
		switch {
		case cur.BearishBody() && next.BullishBody() && next.Close > cur.High:
			zones = append(zones, domain.StructuralZone{
				Type:        domain.ZoneOrderBlock,
				Polarity:    domain.PolarityBullish,
				Top:         cur.High,
				Bottom:      cur.Low,
				StartIndex:  i,
				EndIndex:    i + 1,
				MaxAgeBars:  cfg.ZoneMaxAgeBars,
				VolumeRatio: ratio,
			})
		case cur.BullishBody() && next.BearishBody() && next.Close < cur.Low:
			zones = append(zones, domain.StructuralZone{
				Type:        domain.ZoneOrderBlock,
				Polarity:    domain.PolarityBearish,
				Top:         cur.High,
				Bottom:      cur.Low,
				StartIndex:  i,
				EndIndex:    i + 1,
				MaxAgeBars:  cfg.ZoneMaxAgeBars,
				VolumeRatio: ratio,
			})
		}
	}
	return zones
}

// trailingVolumeRatio is bar i's volume over the average of the period
// bars immediately before it. Returns 0 when the average is not computable.
func trailingVolumeRatio(bars []domain.Candle, i, period int) float64 {
	if period <= 0 || i < period {
		return 0
	}
	sum := 0.0
	for j := i - period; j < i; j++ {
		sum += bars[j].Volume
	}
	avg := sum / float64(period)
	if avg == 0 {
		return 0
	}
	return bars[i].Volume / avg
}
