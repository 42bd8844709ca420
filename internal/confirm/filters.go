package confirm

import (
	"fmt"

	"smc-lab/internal/domain"
	"smc-lab/internal/indicator"
)

// FilterResult is one filter's verdict for the current bar.
type FilterResult struct {
	Name      domain.FilterName
	Passed    bool
	Rationale string
}

// filterFunc evaluates one filter against the series and trade side.
type filterFunc func(bars []domain.Candle, side domain.Side, cfg domain.FilterConfig) FilterResult

// filterFuncs maps filter names to implementations.
var filterFuncs = map[domain.FilterName]filterFunc{
	domain.FilterMomentum:   momentumFilter,
	domain.FilterVolume:     volumeFilter,
	domain.FilterVolatility: volatilityFilter,
	domain.FilterOBV:        obvFilter,
}

// momentumFilter passes when RSI agrees with the trade direction without
// being overextended.
func momentumFilter(bars []domain.Candle, side domain.Side, cfg domain.FilterConfig) FilterResult {
	rsi := indicator.RSI(indicator.Closes(bars), cfg.RSIPeriod)

	var passed bool
	if side == domain.SideLong {
		passed = rsi > 50 && rsi < cfg.RSIBullBelow
	} else {
		passed = rsi < 50 && rsi > cfg.RSIBearAbove
	}

	return FilterResult{
		Name:      domain.FilterMomentum,
		Passed:    passed,
		Rationale: fmt.Sprintf("RSI(%d)=%.1f for %s", cfg.RSIPeriod, rsi, side),
	}
}

// volumeFilter passes when the current bar's volume exceeds its trailing
// average by the configured ratio.
func volumeFilter(bars []domain.Candle, _ domain.Side, cfg domain.FilterConfig) FilterResult {
	ratio := indicator.VolumeRatio(bars, cfg.VolumePeriod)
	return FilterResult{
		Name:      domain.FilterVolume,
		Passed:    ratio >= cfg.VolumeRatio,
		Rationale: fmt.Sprintf("volume ratio %.2f vs threshold %.2f", ratio, cfg.VolumeRatio),
	}
}

// volatilityFilter passes when the close sits in the band half matching
// the trade direction without having pierced the outer band.
func volatilityFilter(bars []domain.Candle, side domain.Side, cfg domain.FilterConfig) FilterResult {
	upper, middle, lower := indicator.Bollinger(indicator.Closes(bars), cfg.BandPeriod, cfg.BandStdDev)
	if middle == 0 {
		return FilterResult{
			Name:      domain.FilterVolatility,
			Rationale: "insufficient data for volatility bands",
		}
	}

	close := bars[len(bars)-1].Close
	var passed bool
	if side == domain.SideLong {
		passed = close > middle && close < upper
	} else {
		passed = close < middle && close > lower
	}

	return FilterResult{
		Name:      domain.FilterVolatility,
		Passed:    passed,
		Rationale: fmt.Sprintf("close %.4f vs bands [%.4f, %.4f, %.4f]", close, lower, middle, upper),
	}
}

// obvFilter passes when on-balance volume slopes with the trade direction
// over the configured window.
func obvFilter(bars []domain.Candle, side domain.Side, cfg domain.FilterConfig) FilterResult {
	obv := indicator.OBV(bars)
	n := cfg.OBVSlopeBars
	if n <= 0 || len(obv) < n+1 {
		return FilterResult{
			Name:      domain.FilterOBV,
			Rationale: "insufficient data for OBV slope",
		}
	}

	slope := obv[len(obv)-1] - obv[len(obv)-1-n]
	var passed bool
	if side == domain.SideLong {
		passed = slope > 0
	} else {
		passed = slope < 0
	}

	return FilterResult{
		Name:      domain.FilterOBV,
		Passed:    passed,
		Rationale: fmt.Sprintf("OBV slope %.2f over %d bars", slope, n),
	}
}
