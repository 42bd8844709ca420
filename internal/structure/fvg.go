package structure

import "smc-lab/internal/domain"

// DetectFairValueGaps scans bar triples (i-2, i-1, i) for price ranges
// skipped between the outer bars.
//
// A bullish gap exists when bar i's low clears bar i-2's high by at least
// MinGapPct percent of that high; the bearish rule compares bar i's high
// against bar i-2's low. Gap size is reported as the percentage spread.
func DetectFairValueGaps(bars []domain.Candle, cfg domain.DetectorConfig) []domain.StructuralZone {
	var zones []domain.StructuralZone
	for i := 2; i < len(bars); i++ {
		first, last := bars[i-2], bars[i]

		if first.High > 0 && last.Low > first.High {
			gapPct := (last.Low - first.High) / first.High * 100
			if gapPct >= cfg.MinGapPct {
				zones = append(zones, domain.StructuralZone{
					Type:       domain.ZoneFairValueGap,
					Polarity:   domain.PolarityBullish,
					Top:        last.Low,
					Bottom:     first.High,
					StartIndex: i - 2,
					EndIndex:   i,
					MaxAgeBars: cfg.ZoneMaxAgeBars,
					GapPct:     gapPct,
				})
			}
		}

		if first.Low > 0 && last.High < first.Low {
			gapPct := (first.Low - last.High) / first.Low * 100
			if gapPct >= cfg.MinGapPct {
				zones = append(zones, domain.StructuralZone{
					Type:       domain.ZoneFairValueGap,
					Polarity:   domain.PolarityBearish,
					Top:        first.Low,
					Bottom:     last.High,
					StartIndex: i - 2,
					EndIndex:   i,
					MaxAgeBars: cfg.ZoneMaxAgeBars,
					GapPct:     gapPct,
				})
			}
		}
	}
	return zones
}
