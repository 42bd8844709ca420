package reporting

import (
	"fmt"
	"strings"
	"time"
)

// RenderMarkdown renders report as Markdown string.
func RenderMarkdown(r *Report) string {
	var sb strings.Builder

	// Header
	sb.WriteString("# Backtest Report\n\n")
	sb.WriteString(fmt.Sprintf("Generated: %s\n\n", r.GeneratedAt.Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("Symbols: %d | Policies: %d\n\n", r.SymbolCount, r.PolicyCount))

	// Data Summary
	sb.WriteString("## Data Summary\n\n")
	sb.WriteString("| Metric | Value |\n")
	sb.WriteString("|--------|-------|\n")
	sb.WriteString(fmt.Sprintf("| Total Runs | %d |\n", r.DataSummary.TotalRuns))
	sb.WriteString(fmt.Sprintf("| Total Trades | %d |\n", r.DataSummary.TotalTrades))
	sb.WriteString(fmt.Sprintf("| Total Signals | %d |\n", r.DataSummary.TotalSignals))
	sb.WriteString(fmt.Sprintf("| Date Range Start (ms) | %d |\n", r.DataSummary.DateRangeStart))
	sb.WriteString(fmt.Sprintf("| Date Range End (ms) | %d |\n", r.DataSummary.DateRangeEnd))
	sb.WriteString("\n")

	// Run Metrics
	sb.WriteString("## Run Metrics\n\n")
	if len(r.RunMetrics) > 0 {
		sb.WriteString("| Run | Symbol | TF | Policy | Trades | WinRate | PF | AvgR | MedianR | P10 | P90 | MaxDD | EqDD | MaxLoss |\n")
		sb.WriteString("|-----|--------|----|--------|--------|---------|----|------|---------|-----|-----|-------|------|--------|\n")
		for _, m := range r.RunMetrics {
			sb.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %d | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %.4f | %d |\n",
				m.RunID, m.Symbol, m.Timeframe, m.PolicyID,
				m.TotalTrades, m.WinRate, m.ProfitFactor, m.AvgR, m.MedianR,
				m.P10R, m.P90R, m.MaxDrawdownR, m.EquityDrawdownR, m.MaxConsecutiveLosses))
		}
	} else {
		sb.WriteString("No run metrics available.\n")
	}
	sb.WriteString("\n")

	// Policy Comparison
	sb.WriteString("## Policy Comparison\n\n")
	if len(r.PolicyComparison) > 0 {
		sb.WriteString("| Policy | Runs | Trades | WinRate | AvgR | Best Run | Worst Run |\n")
		sb.WriteString("|--------|------|--------|---------|------|----------|----------|\n")
		for _, c := range r.PolicyComparison {
			sb.WriteString(fmt.Sprintf("| %s | %d | %d | %.4f | %.4f | %s | %s |\n",
				c.PolicyID, c.Runs, c.TotalTrades,
				c.WinRate, c.AvgR, c.BestRunID, c.WorstRunID))
		}
	} else {
		sb.WriteString("No policy comparison available.\n")
	}
	sb.WriteString("\n")

	return sb.String()
}
