package reporting

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"smc-lab/internal/domain"
	"smc-lab/internal/storage/memory"
)

func setupTestData(t *testing.T) (*memory.BacktestStore, *memory.SignalStore) {
	t.Helper()
	ctx := context.Background()

	backtestStore := memory.NewBacktestStore()
	signalStore := memory.NewSignalStore()

	runs := []*domain.BacktestResult{
		{
			RunID:     "run-b",
			Symbol:    "BTCUSDT",
			Timeframe: domain.Timeframe15m,
			StartMs:   1_000_000,
			EndMs:     2_000_000,
			PolicyID:  "STRUCTURE(rr=2.0)",
			Trades: []domain.Trade{
				{Side: domain.SideLong, RMultiple: 2.0},
				{Side: domain.SideLong, RMultiple: -1.0},
			},
			Stats: domain.PerformanceStats{
				TotalTrades: 2, Winners: 1, Losers: 1,
				WinRate: 0.5, ProfitFactor: 2.0, AvgR: 0.5, MedianR: 0.5,
				MaxDrawdownR: -1.0, MaxConsecutiveLosses: 1,
			},
		},
		{
			RunID:     "run-a",
			Symbol:    "ETHUSDT",
			Timeframe: domain.Timeframe15m,
			StartMs:   500_000,
			EndMs:     3_000_000,
			PolicyID:  "STRUCTURE(rr=2.0)",
			Trades: []domain.Trade{
				{Side: domain.SideShort, RMultiple: 2.0},
			},
			Stats: domain.PerformanceStats{
				TotalTrades: 1, Winners: 1, Losers: 0,
				WinRate: 1.0, AvgR: 2.0, MedianR: 2.0, MaxDrawdownR: 2.0,
			},
		},
		{
			RunID:     "run-c",
			Symbol:    "BTCUSDT",
			Timeframe: domain.Timeframe1h,
			StartMs:   1_500_000,
			EndMs:     2_500_000,
			PolicyID:  "BREAKOUT(lookback=20,rr=2.0)",
			Trades: []domain.Trade{
				{Side: domain.SideLong, RMultiple: -1.0},
			},
			Stats: domain.PerformanceStats{
				TotalTrades: 1, Winners: 0, Losers: 1,
				AvgR: -1.0, MedianR: -1.0, MaxDrawdownR: -1.0,
				MaxConsecutiveLosses: 1,
			},
		},
	}
	for _, run := range runs {
		if err := backtestStore.Insert(ctx, run); err != nil {
			t.Fatalf("Insert run failed: %v", err)
		}
	}

	signals := []*domain.Signal{
		{SignalID: "s1", Symbol: "BTCUSDT", Timeframe: domain.Timeframe15m, Side: domain.SideLong, Entry: 100, StopLoss: 99, TakeProfit: 102, TimestampMs: 1_100_000},
		{SignalID: "s2", Symbol: "ETHUSDT", Timeframe: domain.Timeframe15m, Side: domain.SideShort, Entry: 50, StopLoss: 51, TakeProfit: 48, TimestampMs: 600_000},
	}
	for _, s := range signals {
		if err := signalStore.Insert(ctx, s); err != nil {
			t.Fatalf("Insert signal failed: %v", err)
		}
	}

	return backtestStore, signalStore
}

func TestGenerate_Deterministic(t *testing.T) {
	ctx := context.Background()

	// Fixed time for deterministic output
	fixedTime := time.Date(2026, 2, 15, 12, 0, 0, 0, time.UTC)
	fixedClock := func() time.Time { return fixedTime }

	// Run multiple times and verify same output
	var firstReport *Report
	for run := 0; run < 5; run++ {
		backtestStore, signalStore := setupTestData(t)
		generator := NewGenerator(backtestStore, signalStore).WithClock(fixedClock)

		report, err := generator.Generate(ctx)
		if err != nil {
			t.Fatalf("Run %d: Generate failed: %v", run, err)
		}

		if firstReport == nil {
			firstReport = report
			continue
		}

		if !report.GeneratedAt.Equal(firstReport.GeneratedAt) {
			t.Errorf("Run %d: GeneratedAt mismatch: got %v, want %v", run, report.GeneratedAt, firstReport.GeneratedAt)
		}
		if report.SymbolCount != firstReport.SymbolCount {
			t.Errorf("Run %d: SymbolCount mismatch", run)
		}
		if report.PolicyCount != firstReport.PolicyCount {
			t.Errorf("Run %d: PolicyCount mismatch", run)
		}
		if len(report.RunMetrics) != len(firstReport.RunMetrics) {
			t.Errorf("Run %d: RunMetrics length mismatch", run)
		}

		// Verify order is deterministic
		for i := range report.RunMetrics {
			if report.RunMetrics[i].RunID != firstReport.RunMetrics[i].RunID {
				t.Errorf("Run %d: RunMetrics[%d] RunID mismatch", run, i)
			}
		}
		for i := range report.PolicyComparison {
			if report.PolicyComparison[i].PolicyID != firstReport.PolicyComparison[i].PolicyID {
				t.Errorf("Run %d: PolicyComparison[%d] PolicyID mismatch", run, i)
			}
		}
	}
}

func TestGenerate_WithClock(t *testing.T) {
	ctx := context.Background()
	backtestStore, signalStore := setupTestData(t)

	fixedTime := time.Date(2026, 6, 15, 10, 30, 0, 0, time.UTC)
	generator := NewGenerator(backtestStore, signalStore).WithClock(func() time.Time {
		return fixedTime
	})

	report, err := generator.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if !report.GeneratedAt.Equal(fixedTime) {
		t.Errorf("Expected GeneratedAt %v, got %v", fixedTime, report.GeneratedAt)
	}
}

func TestGenerate_DataSummary(t *testing.T) {
	ctx := context.Background()
	backtestStore, signalStore := setupTestData(t)
	generator := NewGenerator(backtestStore, signalStore)

	report, err := generator.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.SymbolCount != 2 {
		t.Errorf("Expected 2 symbols, got %d", report.SymbolCount)
	}
	if report.PolicyCount != 2 {
		t.Errorf("Expected 2 policies, got %d", report.PolicyCount)
	}
	if report.DataSummary.TotalRuns != 3 {
		t.Errorf("Expected 3 runs, got %d", report.DataSummary.TotalRuns)
	}
	if report.DataSummary.TotalTrades != 4 {
		t.Errorf("Expected 4 trades, got %d", report.DataSummary.TotalTrades)
	}
	if report.DataSummary.TotalSignals != 2 {
		t.Errorf("Expected 2 signals, got %d", report.DataSummary.TotalSignals)
	}
	if report.DataSummary.DateRangeStart != 500_000 {
		t.Errorf("Expected range start 500000, got %d", report.DataSummary.DateRangeStart)
	}
	if report.DataSummary.DateRangeEnd != 3_000_000 {
		t.Errorf("Expected range end 3000000, got %d", report.DataSummary.DateRangeEnd)
	}
}

func TestGenerate_NilSignalStore(t *testing.T) {
	ctx := context.Background()
	backtestStore, _ := setupTestData(t)
	generator := NewGenerator(backtestStore, nil)

	report, err := generator.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if report.DataSummary.TotalSignals != 0 {
		t.Errorf("Expected 0 signals without a signal store, got %d", report.DataSummary.TotalSignals)
	}
}

func TestGenerate_RunMetricsOrder(t *testing.T) {
	ctx := context.Background()
	backtestStore, signalStore := setupTestData(t)
	generator := NewGenerator(backtestStore, signalStore)

	report, err := generator.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// (symbol, timeframe, policy_id, run_id): BTC/15m < BTC/1h < ETH/15m
	wantOrder := []string{"run-b", "run-c", "run-a"}
	if len(report.RunMetrics) != len(wantOrder) {
		t.Fatalf("Expected %d rows, got %d", len(wantOrder), len(report.RunMetrics))
	}
	for i, want := range wantOrder {
		if report.RunMetrics[i].RunID != want {
			t.Errorf("RunMetrics[%d]: expected %s, got %s", i, want, report.RunMetrics[i].RunID)
		}
	}
}

func TestPolicyComparison_Correct(t *testing.T) {
	ctx := context.Background()
	backtestStore, signalStore := setupTestData(t)
	generator := NewGenerator(backtestStore, signalStore)

	report, err := generator.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	var found bool
	for _, c := range report.PolicyComparison {
		if c.PolicyID == "STRUCTURE(rr=2.0)" {
			found = true
			if c.Runs != 2 {
				t.Errorf("Expected 2 runs, got %d", c.Runs)
			}
			if c.TotalTrades != 3 {
				t.Errorf("Expected 3 trades, got %d", c.TotalTrades)
			}
			// 2 winners over 3 trades
			if c.WinRate < 0.666 || c.WinRate > 0.667 {
				t.Errorf("Expected WinRate ~0.667, got %.4f", c.WinRate)
			}
			// (0.5*2 + 2.0*1) / 3 = 1.0
			if c.AvgR != 1.0 {
				t.Errorf("Expected AvgR 1.0, got %.4f", c.AvgR)
			}
			if c.BestRunID != "run-a" {
				t.Errorf("Expected best run-a, got %s", c.BestRunID)
			}
			if c.WorstRunID != "run-b" {
				t.Errorf("Expected worst run-b, got %s", c.WorstRunID)
			}
			break
		}
	}
	if !found {
		t.Error("PolicyComparison missing STRUCTURE(rr=2.0) row")
	}
}

func TestRenderMarkdown_Format(t *testing.T) {
	ctx := context.Background()
	backtestStore, signalStore := setupTestData(t)
	generator := NewGenerator(backtestStore, signalStore)

	report, err := generator.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	md := RenderMarkdown(report)

	requiredSections := []string{
		"# Backtest Report",
		"## Data Summary",
		"## Run Metrics",
		"## Policy Comparison",
	}

	for _, section := range requiredSections {
		if !strings.Contains(md, section) {
			t.Errorf("Markdown missing section: %s", section)
		}
	}

	if !strings.Contains(md, "|") {
		t.Error("Markdown should contain tables with pipe characters")
	}
}

func TestRenderJSON_RoundTrip(t *testing.T) {
	ctx := context.Background()
	backtestStore, signalStore := setupTestData(t)
	generator := NewGenerator(backtestStore, signalStore)

	report, err := generator.Generate(ctx)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	out, err := RenderJSON(report)
	if err != nil {
		t.Fatalf("RenderJSON failed: %v", err)
	}

	var decoded Report
	if err := json.Unmarshal([]byte(out), &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if decoded.DataSummary.TotalRuns != report.DataSummary.TotalRuns {
		t.Errorf("TotalRuns mismatch: got %d, want %d",
			decoded.DataSummary.TotalRuns, report.DataSummary.TotalRuns)
	}
	if len(decoded.RunMetrics) != len(report.RunMetrics) {
		t.Errorf("RunMetrics length mismatch: got %d, want %d",
			len(decoded.RunMetrics), len(report.RunMetrics))
	}
}

func TestRenderCSV_DeterministicOrder(t *testing.T) {
	rows := []RunMetricRow{
		{RunID: "r2", Symbol: "ETHUSDT", Timeframe: "15m", PolicyID: "P", TotalTrades: 10},
		{RunID: "r1", Symbol: "BTCUSDT", Timeframe: "15m", PolicyID: "P", TotalTrades: 5},
		{RunID: "r0", Symbol: "BTCUSDT", Timeframe: "15m", PolicyID: "A", TotalTrades: 3},
	}

	// Sort before rendering (as generator does)
	sortRunMetrics(rows)

	csv := RenderCSV(rows)
	lines := strings.Split(csv, "\n")

	// Header + 3 data rows + empty line
	if len(lines) < 4 {
		t.Fatalf("Expected at least 4 lines, got %d", len(lines))
	}

	if !strings.HasPrefix(lines[0], "run_id,symbol,timeframe,policy_id") {
		t.Error("CSV header is incorrect")
	}

	if !strings.HasPrefix(lines[1], "r0,BTCUSDT") {
		t.Errorf("Expected first row r0, got: %s", lines[1])
	}
	if !strings.HasPrefix(lines[2], "r1,BTCUSDT") {
		t.Errorf("Expected second row r1, got: %s", lines[2])
	}
	if !strings.HasPrefix(lines[3], "r2,ETHUSDT") {
		t.Errorf("Expected third row r2, got: %s", lines[3])
	}
}
