// Package indicator holds the pure indicator math shared by the HTF
// structure detector and the LTF confirmation filters. Every function is
// a pure reduction over its inputs; insufficient data yields a neutral
// value instead of an error.
package indicator

import (
	"math"

	"smc-lab/internal/domain"
)

// SMA returns the simple moving average of the last period values.
// Returns 0 when fewer than period values are available.
func SMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	sum := 0.0
	for i := len(values) - period; i < len(values); i++ {
		sum += values[i]
	}
	return sum / float64(period)
}

// EMA returns the exponential moving average seeded with an SMA of the
// first period values.
func EMA(values []float64, period int) float64 {
	if period <= 0 || len(values) < period {
		return 0
	}
	multiplier := 2.0 / float64(period+1)
	ema := SMA(values[:period], period)
	for i := period; i < len(values); i++ {
		ema = (values[i]-ema)*multiplier + ema
	}
	return ema
}

// RSI returns Wilder's relative strength index over closes.
// Returns the neutral value 50 when there is not enough data.
func RSI(closes []float64, period int) float64 {
	if period <= 0 || len(closes) < period+1 {
		return 50
	}

	gains := make([]float64, 0, len(closes)-1)
	losses := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains = append(gains, change)
			losses = append(losses, 0)
		} else {
			gains = append(gains, 0)
			losses = append(losses, -change)
		}
	}

	avgGain := SMA(gains[:period], period)
	avgLoss := SMA(losses[:period], period)

	// Wilder's smoothing for the remainder.
	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)
	}

	if avgLoss == 0 {
		if avgGain == 0 {
			return 50
		}
		return 100
	}

	rs := avgGain / avgLoss
	return 100 - 100/(1+rs)
}

// ATR returns the average true range over the last period bars.
func ATR(bars []domain.Candle, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	trs := make([]float64, 0, len(bars)-1)
	for i := 1; i < len(bars); i++ {
		highLow := bars[i].High - bars[i].Low
		highClose := math.Abs(bars[i].High - bars[i-1].Close)
		lowClose := math.Abs(bars[i].Low - bars[i-1].Close)
		trs = append(trs, math.Max(highLow, math.Max(highClose, lowClose)))
	}
	return SMA(trs, period)
}

// Bollinger returns the volatility bands around a period SMA.
func Bollinger(closes []float64, period int, stdDev float64) (upper, middle, lower float64) {
	if period <= 0 || len(closes) < period {
		return 0, 0, 0
	}
	middle = SMA(closes, period)

	variance := 0.0
	for i := len(closes) - period; i < len(closes); i++ {
		diff := closes[i] - middle
		variance += diff * diff
	}
	sd := math.Sqrt(variance / float64(period))

	return middle + stdDev*sd, middle, middle - stdDev*sd
}

// OBV returns the on-balance volume series, one value per bar.
func OBV(bars []domain.Candle) []float64 {
	out := make([]float64, len(bars))
	if len(bars) == 0 {
		return out
	}
	for i := 1; i < len(bars); i++ {
		switch {
		case bars[i].Close > bars[i-1].Close:
			out[i] = out[i-1] + bars[i].Volume
		case bars[i].Close < bars[i-1].Close:
			out[i] = out[i-1] - bars[i].Volume
		default:
			out[i] = out[i-1]
		}
	}
	return out
}

// VolumeRatio returns the last bar's volume over the trailing average of
// the period bars before it. Returns 0 when the average is not computable.
func VolumeRatio(bars []domain.Candle, period int) float64 {
	if period <= 0 || len(bars) < period+1 {
		return 0
	}
	sum := 0.0
	for i := len(bars) - period - 1; i < len(bars)-1; i++ {
		sum += bars[i].Volume
	}
	avg := sum / float64(period)
	if avg == 0 {
		return 0
	}
	return bars[len(bars)-1].Volume / avg
}

// Closes extracts the close series from bars.
func Closes(bars []domain.Candle) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.Close
	}
	return out
}
