// Package perf reduces completed trades into summary statistics.
package perf

import (
	"math"
	"sort"

	"smc-lab/internal/domain"
)

// Compute calculates all performance metrics from a trade slice.
// An empty slice yields a fully zeroed record, never an error.
// Order-dependent metrics use entry-time order; input is re-sorted
// deterministically before computing them.
func Compute(trades []domain.Trade) domain.PerformanceStats {
	n := len(trades)
	if n == 0 {
		return domain.PerformanceStats{}
	}

	sorted := make([]domain.Trade, n)
	copy(sorted, trades)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].EntryTimeMs != sorted[j].EntryTimeMs {
			return sorted[i].EntryTimeMs < sorted[j].EntryTimeMs
		}
		return sorted[i].EntryIndex < sorted[j].EntryIndex
	})

	rs := make([]float64, n)
	winners, losers := 0, 0
	grossWin, grossLoss := 0.0, 0.0
	for i, t := range sorted {
		rs[i] = t.RMultiple
		switch {
		case t.RMultiple > 0:
			winners++
			grossWin += t.RMultiple
		case t.RMultiple < 0:
			losers++
			grossLoss += -t.RMultiple
		}
		// Zero R-multiple trades count toward the total only.
	}

	sortedR := make([]float64, n)
	copy(sortedR, rs)
	sort.Float64s(sortedR)

	mean := computeMean(rs)
	stddev := computeStddev(rs, mean)

	stats := domain.PerformanceStats{
		TotalTrades: n,
		Winners:     winners,
		Losers:      losers,

		WinRate:      float64(winners) / float64(n),
		ProfitFactor: computeProfitFactor(grossWin, grossLoss),
		AvgR:         mean,
		MaxDrawdownR: sortedR[0],
		ReturnRatio:  computeReturnRatio(mean, stddev, n),

		MedianR:              computePercentile(sortedR, 0.50),
		P10R:                 computePercentile(sortedR, 0.10),
		P25R:                 computePercentile(sortedR, 0.25),
		P75R:                 computePercentile(sortedR, 0.75),
		P90R:                 computePercentile(sortedR, 0.90),
		StddevR:              stddev,
		MaxConsecutiveLosses: computeMaxConsecutiveLosses(rs),
		EquityDrawdownR:      computeEquityDrawdown(rs),
	}
	return stats
}

// computeProfitFactor is gross win over gross loss, defined as 0 when
// there is no loss (never infinite).
func computeProfitFactor(grossWin, grossLoss float64) float64 {
	if grossLoss == 0 {
		return 0
	}
	return grossWin / grossLoss
}

// computeReturnRatio is mean R over sample stddev, 0 for n < 2 or flat
// dispersion.
func computeReturnRatio(mean, stddev float64, n int) float64 {
	if n < 2 || stddev == 0 {
		return 0
	}
	return mean / stddev
}

func computeMean(rs []float64) float64 {
	sum := 0.0
	for _, r := range rs {
		sum += r
	}
	return sum / float64(len(rs))
}

// computeStddev is the sample standard deviation (n-1 denominator).
func computeStddev(rs []float64, mean float64) float64 {
	n := len(rs)
	if n < 2 {
		return 0
	}
	sumSq := 0.0
	for _, r := range rs {
		diff := r - mean
		sumSq += diff * diff
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// computePercentile uses linear interpolation over a pre-sorted slice.
func computePercentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n == 1 {
		return sorted[0]
	}

	idx := p * float64(n-1)
	lower := int(idx)
	upper := lower + 1
	if upper >= n {
		return sorted[n-1]
	}

	frac := idx - float64(lower)
	return sorted[lower] + frac*(sorted[upper]-sorted[lower])
}

// computeMaxConsecutiveLosses finds the longest streak of R < 0 in
// chronological order.
func computeMaxConsecutiveLosses(rs []float64) int {
	maxStreak, streak := 0, 0
	for _, r := range rs {
		if r < 0 {
			streak++
			if streak > maxStreak {
				maxStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return maxStreak
}

// computeEquityDrawdown is the worst peak-to-trough decline of the
// cumulative R balance in chronological order.
func computeEquityDrawdown(rs []float64) float64 {
	cumulative, peak, maxDD := 0.0, 0.0, 0.0
	for _, r := range rs {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
