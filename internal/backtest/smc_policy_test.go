package backtest

import (
	"errors"
	"testing"

	"smc-lab/internal/domain"
)

// smcFixtureConfigs returns detector, filter and risk parameters scaled
// down to the small fixture series used below.
func smcFixtureConfigs() (domain.DetectorConfig, domain.FilterConfig, domain.RiskConfig) {
	detector := domain.DetectorConfig{
		MinBars:              5,
		TrendMAPeriod:        3,
		OrderBlockLookback:   10,
		VolumeAvgPeriod:      2,
		VolumeRatioThreshold: 1.5,
		MinGapPct:            0.5,
		SwingWindow:          2,
		SwingThresholdPct:    0.3,
	}

	filters := domain.DefaultFilterConfig()
	filters.Enabled = []domain.FilterName{domain.FilterOBV}
	filters.MinPasses = 1
	filters.OBVSlopeBars = 2

	return detector, filters, domain.DefaultRiskConfig()
}

// bullishHTF builds an uptrending HTF series containing one bullish
// order block (bars 2-3, bounds [95 .. 106]).
func bullishHTF() []domain.Candle {
	return []domain.Candle{
		{OpenTimeMs: 0, Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		{OpenTimeMs: 1, Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		{OpenTimeMs: 2, Open: 105, High: 106, Low: 95, Close: 100, Volume: 300},
		{OpenTimeMs: 3, Open: 100, High: 111, Low: 100, Close: 110, Volume: 100},
		{OpenTimeMs: 4, Open: 110, High: 112, Low: 105, Close: 111, Volume: 100},
		{OpenTimeMs: 5, Open: 111, High: 113, Low: 110, Close: 112, Volume: 100},
	}
}

func TestSMCPolicy_EndToEnd(t *testing.T) {
	detector, filters, risk := smcFixtureConfigs()

	policy, err := NewSMCPolicy(bullishHTF(), detector, filters, risk, nil)
	if err != nil {
		t.Fatalf("NewSMCPolicy failed: %v", err)
	}

	// Rising LTF series above the zone; OBV confirms from bar 2 on.
	ltf := make([]domain.Candle, 10)
	for i := range ltf {
		price := 100 + float64(i)
		ltf[i] = domain.Candle{
			Symbol:     "BTCUSDT",
			Timeframe:  domain.Timeframe15m,
			OpenTimeMs: int64(i) * 900_000,
			Open:       price, High: price + 1, Low: price - 1, Close: price,
			Volume: 100,
		}
	}

	trades := NewEngine(policy, EngineConfig{}, nil).Run(ltf)
	if len(trades) != 1 {
		t.Fatalf("Expected exactly 1 trade (duplicate suppression), got %d", len(trades))
	}

	tr := trades[0]
	if tr.Side != domain.SideLong {
		t.Errorf("Side = %s, want LONG", tr.Side)
	}
	if tr.EntryIndex != 2 {
		t.Errorf("EntryIndex = %d, want the first confirmable bar 2", tr.EntryIndex)
	}
	if tr.Stop != 95 {
		t.Errorf("Stop = %f, want the zone bottom 95", tr.Stop)
	}
	// Entry 102 with stop 95 brackets twice the 7-point risk.
	if tr.Target != 116 {
		t.Errorf("Target = %f, want 116", tr.Target)
	}
	if tr.ExitReason != domain.ExitReasonTimeLimit {
		t.Errorf("ExitReason = %s, want TIME_LIMIT at end of data", tr.ExitReason)
	}
}

func TestSMCPolicy_NoTradesUnderNeutralBias(t *testing.T) {
	detector, filters, risk := smcFixtureConfigs()

	// Series shorter than MinBars scans neutral; nothing can be emitted.
	policy, err := NewSMCPolicy(bullishHTF()[:3], detector, filters, risk, nil)
	if err != nil {
		t.Fatalf("NewSMCPolicy failed: %v", err)
	}

	trades := NewEngine(policy, EngineConfig{}, nil).Run(flatBars(10))
	if len(trades) != 0 {
		t.Errorf("Expected no trades under a neutral scan, got %d", len(trades))
	}
}

func TestNewSMCPolicy_RejectsUnsortedHTF(t *testing.T) {
	detector, filters, risk := smcFixtureConfigs()

	htf := bullishHTF()
	htf[1], htf[2] = htf[2], htf[1]

	_, err := NewSMCPolicy(htf, detector, filters, risk, nil)
	if !errors.Is(err, domain.ErrUnsortedSeries) {
		t.Errorf("Expected ErrUnsortedSeries, got %v", err)
	}
}

func TestSMCPolicy_RejectsInvalidConfig(t *testing.T) {
	detector, filters, risk := smcFixtureConfigs()
	filters.MinPasses = len(filters.Enabled) + 1

	if _, err := NewSMCPolicy(bullishHTF(), detector, filters, risk, nil); err == nil {
		t.Fatal("Expected an error for an impossible filter policy")
	}
}
