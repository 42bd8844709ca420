package structure

import (
	"testing"

	"smc-lab/internal/domain"
)

func obConfig() domain.DetectorConfig {
	return domain.DetectorConfig{
		OrderBlockLookback:   10,
		VolumeAvgPeriod:      2,
		VolumeRatioThreshold: 1.5,
		ZoneMaxAgeBars:       100,
	}
}

func TestDetectOrderBlocks_Bullish(t *testing.T) {
	bars := []domain.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		{Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		// Bearish bar on 3x volume, displaced upward by the next bar.
		{Open: 105, High: 106, Low: 99, Close: 100, Volume: 300},
		{Open: 100, High: 111, Low: 100, Close: 110, Volume: 100},
	}

	zones := DetectOrderBlocks(bars, obConfig())
	if len(zones) != 1 {
		t.Fatalf("Expected 1 zone, got %d", len(zones))
	}

	z := zones[0]
	if z.Type != domain.ZoneOrderBlock || z.Polarity != domain.PolarityBullish {
		t.Errorf("Unexpected zone identity: %s %s", z.Type, z.Polarity)
	}
	if z.Top != 106 || z.Bottom != 99 {
		t.Errorf("Zone bounds = [%f .. %f], want [99 .. 106]", z.Bottom, z.Top)
	}
	if z.StartIndex != 2 || z.EndIndex != 3 {
		t.Errorf("Zone indices = %d-%d, want 2-3", z.StartIndex, z.EndIndex)
	}
	if z.VolumeRatio != 3 {
		t.Errorf("VolumeRatio = %f, want 3", z.VolumeRatio)
	}
}

func TestDetectOrderBlocks_Bearish(t *testing.T) {
	bars := []domain.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		{Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		// Bullish bar on expanded volume, displaced downward.
		{Open: 100, High: 106, Low: 99, Close: 105, Volume: 300},
		{Open: 100, High: 100, Low: 90, Close: 92, Volume: 100},
	}

	zones := DetectOrderBlocks(bars, obConfig())
	if len(zones) != 1 {
		t.Fatalf("Expected 1 zone, got %d", len(zones))
	}
	if zones[0].Polarity != domain.PolarityBearish {
		t.Errorf("Polarity = %s, want BEARISH", zones[0].Polarity)
	}
}

func TestDetectOrderBlocks_VolumeBelowThreshold(t *testing.T) {
	bars := []domain.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		{Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		// Same displacement pattern but only 1.2x volume.
		{Open: 105, High: 106, Low: 99, Close: 100, Volume: 120},
		{Open: 100, High: 111, Low: 100, Close: 110, Volume: 100},
	}

	if zones := DetectOrderBlocks(bars, obConfig()); len(zones) != 0 {
		t.Errorf("Expected no zones below the volume threshold, got %d", len(zones))
	}
}

func TestDetectOrderBlocks_NoDisplacement(t *testing.T) {
	bars := []domain.Candle{
		{Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		{Open: 100, High: 101, Low: 99, Close: 100, Volume: 100},
		// Next bar bullish but does not close above the bearish bar's high.
		{Open: 105, High: 106, Low: 99, Close: 100, Volume: 300},
		{Open: 100, High: 105, Low: 100, Close: 104, Volume: 100},
	}

	if zones := DetectOrderBlocks(bars, obConfig()); len(zones) != 0 {
		t.Errorf("Expected no zones without displacement, got %d", len(zones))
	}
}

func TestDetectOrderBlocks_ShortSeries(t *testing.T) {
	if zones := DetectOrderBlocks([]domain.Candle{{Close: 1}}, obConfig()); zones != nil {
		t.Errorf("Expected nil for a single bar, got %v", zones)
	}
}
