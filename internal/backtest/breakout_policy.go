package backtest

import (
	"fmt"

	"smc-lab/internal/domain"
)

// BreakoutPolicy is the simple rule-based signal source: enter long when
// the close breaks above the highest high of the lookback window, short
// on a break below the lowest low. Stops at the opposite window extreme,
// target at the configured reward multiple.
type BreakoutPolicy struct {
	Lookback   int
	RiskReward float64
	LongOnly   bool
}

// NewBreakoutPolicy creates the breakout entry rule.
func NewBreakoutPolicy(lookback int, riskReward float64, longOnly bool) *BreakoutPolicy {
	return &BreakoutPolicy{Lookback: lookback, RiskReward: riskReward, LongOnly: longOnly}
}

// OnBar checks the last close against the prior window extremes.
func (p *BreakoutPolicy) OnBar(bars []domain.Candle, i int) EntryDecision {
	if p.Lookback <= 0 || i < p.Lookback {
		return EntryDecision{}
	}

	high, low := bars[i-p.Lookback].High, bars[i-p.Lookback].Low
	for j := i - p.Lookback; j < i; j++ {
		if bars[j].High > high {
			high = bars[j].High
		}
		if bars[j].Low < low {
			low = bars[j].Low
		}
	}

	close := bars[i].Close
	if close > high && close > low {
		risk := close - low
		return EntryDecision{
			Enter:  true,
			Side:   domain.SideLong,
			Stop:   low,
			Target: close + risk*p.RiskReward,
		}
	}
	if !p.LongOnly && close < low && close < high {
		risk := high - close
		return EntryDecision{
			Enter:  true,
			Side:   domain.SideShort,
			Stop:   high,
			Target: close - risk*p.RiskReward,
		}
	}
	return EntryDecision{}
}

// ID returns the policy identifier including parameters.
func (p *BreakoutPolicy) ID() string {
	return fmt.Sprintf("BREAKOUT_n%d_rr%.1f_long%t", p.Lookback, p.RiskReward, p.LongOnly)
}

var _ EntryPolicy = (*BreakoutPolicy)(nil)
