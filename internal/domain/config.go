package domain

import "errors"

// Config validation errors.
var (
	ErrNonPositiveRiskReward = errors.New("minimum risk/reward must be > 0")
	ErrBadPassCountPolicy    = errors.New("filter pass-count must be between 0 and the enabled filter count")
	ErrBadConfidenceBounds   = errors.New("minimum confidence must be within [0,1]")
)

// FilterName identifies an LTF confirmation filter.
type FilterName string

// Available filters.
const (
	FilterMomentum   FilterName = "momentum"
	FilterVolume     FilterName = "volume"
	FilterVolatility FilterName = "volatility"
	FilterOBV        FilterName = "obv"
)

// DetectorConfig parameterizes the HTF structure scan. All values are
// caller-supplied; there is no process-wide configuration state.
type DetectorConfig struct {
	MinBars       int // below this the scan returns neutral/empty results
	TrendMAPeriod int

	// Order blocks.
	OrderBlockLookback   int     // bounded lookback window in bars
	VolumeAvgPeriod      int     // trailing rolling average window
	VolumeRatioThreshold float64 // bar volume must exceed average by this ratio

	// Fair value gaps.
	MinGapPct float64 // minimum gap as percentage of the reference bar

	// Liquidity pools.
	SwingWindow       int     // symmetric window half-width in bars
	SwingThresholdPct float64 // swing extreme vs window opposite extreme, percent

	// Validity window applied to created zones. Zero disables aging.
	ZoneMaxAgeBars int
}

// DefaultDetectorConfig returns the baseline HTF scan parameters.
func DefaultDetectorConfig() DetectorConfig {
	return DetectorConfig{
		MinBars:              50,
		TrendMAPeriod:        50,
		OrderBlockLookback:   60,
		VolumeAvgPeriod:      20,
		VolumeRatioThreshold: 1.5,
		MinGapPct:            0.5,
		SwingWindow:          2,
		SwingThresholdPct:    0.3,
		ZoneMaxAgeBars:       100,
	}
}

// FilterConfig parameterizes the LTF confirmation engine.
type FilterConfig struct {
	Enabled   []FilterName
	MinPasses int // at least N of the enabled filters must pass

	// Momentum oscillator (RSI).
	RSIPeriod    int
	RSIBullBelow float64 // long entries require RSI below this (not overbought)
	RSIBearAbove float64 // short entries require RSI above this (not oversold)

	// Volume ratio.
	VolumePeriod int
	VolumeRatio  float64

	// Volatility bands (Bollinger).
	BandPeriod int
	BandStdDev float64

	// On-balance volume slope window.
	OBVSlopeBars int

	// Swing detection for BOS / sweep corroboration.
	SwingWindow int
}

// DefaultFilterConfig returns the baseline LTF filter parameters.
func DefaultFilterConfig() FilterConfig {
	return FilterConfig{
		Enabled:      []FilterName{FilterMomentum, FilterVolume, FilterVolatility, FilterOBV},
		MinPasses:    2,
		RSIPeriod:    14,
		RSIBullBelow: 70,
		RSIBearAbove: 30,
		VolumePeriod: 20,
		VolumeRatio:  1.2,
		BandPeriod:   20,
		BandStdDev:   2.0,
		OBVSlopeBars: 5,
		SwingWindow:  2,
	}
}

// Validate checks the pass-count policy against the enabled set.
func (c FilterConfig) Validate() error {
	if c.MinPasses < 0 || c.MinPasses > len(c.Enabled) {
		return ErrBadPassCountPolicy
	}
	return nil
}

// RiskConfig parameterizes signal construction and the simulator.
type RiskConfig struct {
	ATRPeriod     int
	StopATRBuffer float64 // fraction of ATR added beyond the zone boundary
	MinRiskReward float64

	// Confidence scoring.
	BaseConfidence  float64
	FilterIncrement float64 // per passed filter
	TrendBonus      float64 // trend-alignment bonus
	MinConfidence   float64

	// Simulator time limit; 0 means exit only at end of data.
	MaxHoldBars int
}

// DefaultRiskConfig returns the baseline risk parameters.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		ATRPeriod:       14,
		StopATRBuffer:   0.5,
		MinRiskReward:   2.0,
		BaseConfidence:  0.3,
		FilterIncrement: 0.1,
		TrendBonus:      0.15,
		MinConfidence:   0.5,
		MaxHoldBars:     0,
	}
}

// Validate rejects parameter sets that would produce degenerate signals.
func (c RiskConfig) Validate() error {
	if c.MinRiskReward <= 0 {
		return ErrNonPositiveRiskReward
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return ErrBadConfidenceBounds
	}
	return nil
}
