package domain

// PerformanceStats is the reduction of a trade set into summary metrics.
// An empty trade set yields a fully zeroed record, never an error.
type PerformanceStats struct {
	TotalTrades int
	Winners     int // R-multiple > 0
	Losers      int // R-multiple < 0

	WinRate      float64 // winners / total
	ProfitFactor float64 // sum(positive R) / |sum(negative R)|, 0 when no loss
	AvgR         float64 // expectancy, mean R-multiple
	MaxDrawdownR float64 // minimum single-trade R-multiple
	ReturnRatio  float64 // mean R / sample stddev of R, 0 for n < 2

	// Distribution detail.
	MedianR              float64
	P10R                 float64
	P25R                 float64
	P75R                 float64
	P90R                 float64
	StddevR              float64
	MaxConsecutiveLosses int

	// EquityDrawdownR is the worst peak-to-trough decline of the running
	// cumulative R balance, reported alongside the single-trade figure.
	EquityDrawdownR float64
}

// BacktestResult binds completed trades and their aggregate metrics to a
// (symbol, timeframe, date-range, parameter-set) identity. Created once
// per simulation run and never mutated afterwards.
type BacktestResult struct {
	RunID     string
	Symbol    string
	Timeframe Timeframe
	StartMs   int64
	EndMs     int64
	PolicyID  string // entry policy identifier, includes parameters

	Trades []Trade
	Stats  PerformanceStats
}
