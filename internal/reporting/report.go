package reporting

import "time"

// Report summarizes all stored backtest runs.
type Report struct {
	// Metadata
	GeneratedAt time.Time
	SymbolCount int
	PolicyCount int

	// Data Summary
	DataSummary DataSummary

	// Per-run metrics (sorted by symbol, timeframe, policy_id, run_id)
	RunMetrics []RunMetricRow

	// Per-policy aggregation across runs (sorted by policy_id)
	PolicyComparison []PolicyComparisonRow
}

// DataSummary contains data description.
type DataSummary struct {
	TotalRuns      int
	TotalTrades    int
	TotalSignals   int
	DateRangeStart int64 // Unix ms, earliest run start
	DateRangeEnd   int64 // Unix ms, latest run end
}

// RunMetricRow represents one row in the per-run metrics table.
type RunMetricRow struct {
	RunID     string
	Symbol    string
	Timeframe string
	PolicyID  string

	TotalTrades int
	Winners     int
	Losers      int

	WinRate              float64
	ProfitFactor         float64
	AvgR                 float64
	MedianR              float64
	P10R                 float64
	P90R                 float64
	MaxDrawdownR         float64
	EquityDrawdownR      float64
	MaxConsecutiveLosses int
}

// PolicyComparisonRow aggregates runs that share a policy ID.
type PolicyComparisonRow struct {
	PolicyID    string
	Runs        int
	TotalTrades int

	// WinRate and AvgR are trade-weighted across the policy's runs.
	WinRate float64
	AvgR    float64

	// BestRunID and WorstRunID rank runs by AvgR; ties break on run_id.
	BestRunID  string
	WorstRunID string
}
