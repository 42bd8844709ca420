package domain

// TrendBias is the HTF directional state derived from price vs moving average.
type TrendBias string

// Trend bias constants.
const (
	TrendBullish TrendBias = "BULLISH"
	TrendBearish TrendBias = "BEARISH"
	TrendNeutral TrendBias = "NEUTRAL"
)

// Matches reports whether a zone polarity aligns with the bias.
func (b TrendBias) Matches(p Polarity) bool {
	return (b == TrendBullish && p == PolarityBullish) ||
		(b == TrendBearish && p == PolarityBearish)
}

// BOSEvent records a close beyond a prior swing level in the trend
// direction. Produced by the LTF engine, consumed by the synthesizer
// within the same evaluation cycle.
type BOSEvent struct {
	TimestampMs int64
	Direction   Polarity
	BarIndex    int // confirming bar index
	Magnitude   float64
}

// LiquiditySweep records a wick beyond a swing level followed by a
// reversal close.
type LiquiditySweep struct {
	TimestampMs int64
	Direction   Polarity
	BarIndex    int
	SweptLevel  float64
	Magnitude   float64
}
