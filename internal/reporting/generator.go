package reporting

import (
	"context"
	"sort"
	"time"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

// Generator produces reports from stored backtest runs.
type Generator struct {
	backtestStore storage.BacktestStore
	signalStore   storage.SignalStore // optional, nil disables signal counts
	now           func() time.Time    // Injectable clock for deterministic output
}

// NewGenerator creates a new report generator. signalStore may be nil.
func NewGenerator(backtestStore storage.BacktestStore, signalStore storage.SignalStore) *Generator {
	return &Generator{
		backtestStore: backtestStore,
		signalStore:   signalStore,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// WithClock sets a custom clock function for deterministic output.
func (g *Generator) WithClock(now func() time.Time) *Generator {
	g.now = now
	return g
}

// Generate produces a complete report from all stored runs.
func (g *Generator) Generate(ctx context.Context) (*Report, error) {
	runs, err := g.backtestStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	dataSummary, err := g.generateDataSummary(ctx, runs)
	if err != nil {
		return nil, err
	}

	metrics := g.generateRunMetrics(runs)
	comparison := g.generatePolicyComparison(runs)

	// Count unique symbols and policies
	symbolSet := make(map[string]struct{})
	policySet := make(map[string]struct{})
	for _, run := range runs {
		symbolSet[run.Symbol] = struct{}{}
		policySet[run.PolicyID] = struct{}{}
	}

	return &Report{
		GeneratedAt:      g.now(),
		SymbolCount:      len(symbolSet),
		PolicyCount:      len(policySet),
		DataSummary:      *dataSummary,
		RunMetrics:       metrics,
		PolicyComparison: comparison,
	}, nil
}

// generateDataSummary computes run counts and the covered date range.
func (g *Generator) generateDataSummary(ctx context.Context, runs []*domain.BacktestResult) (*DataSummary, error) {
	totalTrades := 0
	var dateRangeStart, dateRangeEnd int64
	if len(runs) > 0 {
		dateRangeStart = runs[0].StartMs
		dateRangeEnd = runs[0].EndMs
	}
	for _, run := range runs {
		totalTrades += len(run.Trades)
		if run.StartMs < dateRangeStart {
			dateRangeStart = run.StartMs
		}
		if run.EndMs > dateRangeEnd {
			dateRangeEnd = run.EndMs
		}
	}

	totalSignals, err := g.countSignals(ctx, runs)
	if err != nil {
		return nil, err
	}

	return &DataSummary{
		TotalRuns:      len(runs),
		TotalTrades:    totalTrades,
		TotalSignals:   totalSignals,
		DateRangeStart: dateRangeStart,
		DateRangeEnd:   dateRangeEnd,
	}, nil
}

// countSignals sums stored signals over the symbols the runs cover.
func (g *Generator) countSignals(ctx context.Context, runs []*domain.BacktestResult) (int, error) {
	if g.signalStore == nil {
		return 0, nil
	}

	symbolSet := make(map[string]struct{})
	for _, run := range runs {
		symbolSet[run.Symbol] = struct{}{}
	}

	symbols := make([]string, 0, len(symbolSet))
	for s := range symbolSet {
		symbols = append(symbols, s)
	}
	sort.Strings(symbols)

	total := 0
	for _, symbol := range symbols {
		signals, err := g.signalStore.GetBySymbol(ctx, symbol)
		if err != nil {
			return 0, err
		}
		total += len(signals)
	}
	return total, nil
}

// generateRunMetrics builds sorted per-run rows.
func (g *Generator) generateRunMetrics(runs []*domain.BacktestResult) []RunMetricRow {
	rows := make([]RunMetricRow, len(runs))
	for i, run := range runs {
		rows[i] = RunMetricRow{
			RunID:     run.RunID,
			Symbol:    run.Symbol,
			Timeframe: string(run.Timeframe),
			PolicyID:  run.PolicyID,

			TotalTrades: run.Stats.TotalTrades,
			Winners:     run.Stats.Winners,
			Losers:      run.Stats.Losers,

			WinRate:              run.Stats.WinRate,
			ProfitFactor:         run.Stats.ProfitFactor,
			AvgR:                 run.Stats.AvgR,
			MedianR:              run.Stats.MedianR,
			P10R:                 run.Stats.P10R,
			P90R:                 run.Stats.P90R,
			MaxDrawdownR:         run.Stats.MaxDrawdownR,
			EquityDrawdownR:      run.Stats.EquityDrawdownR,
			MaxConsecutiveLosses: run.Stats.MaxConsecutiveLosses,
		}
	}

	// Sort by (symbol, timeframe, policy_id, run_id)
	sortRunMetrics(rows)
	return rows
}

// generatePolicyComparison aggregates runs per policy ID.
func (g *Generator) generatePolicyComparison(runs []*domain.BacktestResult) []PolicyComparisonRow {
	groups := make(map[string][]*domain.BacktestResult)
	for _, run := range runs {
		groups[run.PolicyID] = append(groups[run.PolicyID], run)
	}

	var rows []PolicyComparisonRow
	for policyID, group := range groups {
		row := PolicyComparisonRow{
			PolicyID: policyID,
			Runs:     len(group),
		}

		// Trade-weighted win rate and mean R across the group
		winners := 0
		sumR := 0.0
		for _, run := range group {
			row.TotalTrades += run.Stats.TotalTrades
			winners += run.Stats.Winners
			sumR += run.Stats.AvgR * float64(run.Stats.TotalTrades)
		}
		if row.TotalTrades > 0 {
			row.WinRate = float64(winners) / float64(row.TotalTrades)
			row.AvgR = sumR / float64(row.TotalTrades)
		}

		best, worst := group[0], group[0]
		for _, run := range group[1:] {
			if betterRun(run, best) {
				best = run
			}
			if betterRun(worst, run) {
				worst = run
			}
		}
		row.BestRunID = best.RunID
		row.WorstRunID = worst.RunID

		rows = append(rows, row)
	}

	// Sort by policy_id
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].PolicyID < rows[j].PolicyID
	})

	return rows
}

// betterRun ranks runs by AvgR, breaking ties on run_id for determinism.
func betterRun(a, b *domain.BacktestResult) bool {
	if a.Stats.AvgR != b.Stats.AvgR {
		return a.Stats.AvgR > b.Stats.AvgR
	}
	return a.RunID < b.RunID
}

// sortRunMetrics sorts rows by (symbol, timeframe, policy_id, run_id).
func sortRunMetrics(rows []RunMetricRow) {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Symbol != rows[j].Symbol {
			return rows[i].Symbol < rows[j].Symbol
		}
		if rows[i].Timeframe != rows[j].Timeframe {
			return rows[i].Timeframe < rows[j].Timeframe
		}
		if rows[i].PolicyID != rows[j].PolicyID {
			return rows[i].PolicyID < rows[j].PolicyID
		}
		return rows[i].RunID < rows[j].RunID
	})
}
