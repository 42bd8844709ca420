package reporting

import (
	"fmt"
	"strings"
)

// RenderCSV renders per-run metrics as CSV string.
func RenderCSV(rows []RunMetricRow) string {
	var sb strings.Builder

	// Header
	sb.WriteString("run_id,symbol,timeframe,policy_id,total_trades,winners,losers,")
	sb.WriteString("win_rate,profit_factor,avg_r,median_r,p10_r,p90_r,")
	sb.WriteString("max_drawdown_r,equity_drawdown_r,max_consecutive_losses\n")

	// Rows
	for _, m := range rows {
		sb.WriteString(fmt.Sprintf("%s,%s,%s,%s,%d,%d,%d,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%.6f,%d\n",
			m.RunID,
			m.Symbol,
			m.Timeframe,
			m.PolicyID,
			m.TotalTrades,
			m.Winners,
			m.Losers,
			m.WinRate,
			m.ProfitFactor,
			m.AvgR,
			m.MedianR,
			m.P10R,
			m.P90R,
			m.MaxDrawdownR,
			m.EquityDrawdownR,
			m.MaxConsecutiveLosses,
		))
	}

	return sb.String()
}
