package structure

import (
	"smc-lab/internal/domain"
	"smc-lab/internal/indicator"
)

// TrendBias compares the current close to a trailing moving average:
// bullish above, bearish below, neutral on equality or missing data.
func TrendBias(bars []domain.Candle, maPeriod int) domain.TrendBias {
	if len(bars) < maPeriod || maPeriod <= 0 {
		return domain.TrendNeutral
	}

	ma := indicator.SMA(indicator.Closes(bars), maPeriod)
	if ma == 0 {
		return domain.TrendNeutral
	}

	close := bars[len(bars)-1].Close
	switch {
	case close > ma:
		return domain.TrendBullish
	case close < ma:
		return domain.TrendBearish
	}
	return domain.TrendNeutral
}
