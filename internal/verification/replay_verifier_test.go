package verification

import (
	"context"
	"errors"
	"testing"

	"smc-lab/internal/backtest"
	"smc-lab/internal/domain"
	"smc-lab/internal/perf"
	"smc-lab/internal/storage/memory"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// seedBars builds a deterministic series with a clean breakout and
// target hit for a lookback-5 long-only policy.
func seedBars() []domain.Candle {
	prices := []struct {
		open, high, low, close float64
	}{
		{100, 101, 99, 100},
		{100, 101, 99, 100},
		{100, 101, 99, 100},
		{100, 101, 99, 100},
		{100, 101, 99, 100},
		{100, 103, 99.5, 102}, // breakout close above prior high
		{102, 104, 101, 103},
		{103, 108, 102, 107}, // target hit
		{107, 108, 106, 107},
		{107, 108, 106, 107},
	}

	bars := make([]domain.Candle, len(prices))
	for i, p := range prices {
		bars[i] = domain.Candle{
			Symbol:     "BTCUSDT",
			Timeframe:  domain.Timeframe15m,
			OpenTimeMs: int64(i) * 900_000,
			Open:       p.open,
			High:       p.high,
			Low:        p.low,
			Close:      p.close,
			Volume:     1000,
		}
	}
	return bars
}

func setupVerifier(t *testing.T) (*ReplayVerifier, *memory.BacktestStore, []domain.Trade) {
	t.Helper()
	ctx := context.Background()

	bars := seedBars()

	candleStore := memory.NewCandleStore()
	if err := candleStore.InsertBulk(ctx, bars); err != nil {
		t.Fatalf("seed candles: %v", err)
	}

	cfg := backtest.PolicyConfig{
		PolicyType: backtest.PolicyTypeBreakout,
		Lookback:   intPtr(5),
		RiskReward: floatPtr(2.0),
		LongOnly:   true,
	}

	policy, err := backtest.FromConfig(cfg, nil, nil)
	if err != nil {
		t.Fatalf("build policy: %v", err)
	}

	engine := backtest.NewEngine(policy, backtest.EngineConfig{}, nil)
	trades := engine.Run(bars)
	if len(trades) == 0 {
		t.Fatal("expected at least one trade from seed series")
	}

	run := &domain.BacktestResult{
		RunID:     "run-verify-1",
		Symbol:    "BTCUSDT",
		Timeframe: domain.Timeframe15m,
		StartMs:   bars[0].OpenTimeMs,
		EndMs:     bars[len(bars)-1].OpenTimeMs,
		PolicyID:  policy.ID(),
		Trades:    trades,
		Stats:     perf.Compute(trades),
	}

	backtestStore := memory.NewBacktestStore()
	if err := backtestStore.Insert(ctx, run); err != nil {
		t.Fatalf("store run: %v", err)
	}

	v := NewReplayVerifier(ReplayVerifierOptions{
		BacktestStore: backtestStore,
		CandleStore:   candleStore,
		Policies: map[string]ReplayPolicy{
			policy.ID(): {Config: cfg},
		},
	})

	return v, backtestStore, trades
}

func TestReplayVerifier_Match(t *testing.T) {
	v, _, trades := setupVerifier(t)

	result, err := v.VerifyRun(context.Background(), "run-verify-1")
	if err != nil {
		t.Fatalf("VerifyRun failed: %v", err)
	}

	if !result.Match {
		t.Errorf("Expected match, divergences: %+v", result.Divergences)
	}
	if result.StoredTrades != len(trades) || result.ReplayedTrades != len(trades) {
		t.Errorf("Trade counts: stored=%d replayed=%d want=%d",
			result.StoredTrades, result.ReplayedTrades, len(trades))
	}
}

func TestReplayVerifier_DetectsTamperedTrade(t *testing.T) {
	v, store, trades := setupVerifier(t)
	ctx := context.Background()

	// Store a second run with a corrupted R-multiple.
	tampered := make([]domain.Trade, len(trades))
	copy(tampered, trades)
	tampered[0].RMultiple += 0.5

	run, err := store.GetByID(ctx, "run-verify-1")
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	run.RunID = "run-verify-2"
	run.Trades = tampered
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("store tampered run: %v", err)
	}

	result, err := v.VerifyRun(ctx, "run-verify-2")
	if err != nil {
		t.Fatalf("VerifyRun failed: %v", err)
	}

	if result.Match {
		t.Fatal("Expected divergence for tampered trade")
	}
	if len(result.Divergences) != 1 || result.Divergences[0].Field != "Trades[0].RMultiple" {
		t.Errorf("Unexpected divergences: %+v", result.Divergences)
	}
}

func TestReplayVerifier_RunNotFound(t *testing.T) {
	v, _, _ := setupVerifier(t)

	_, err := v.VerifyRun(context.Background(), "missing")
	if !errors.Is(err, ErrRunNotFound) {
		t.Errorf("Expected ErrRunNotFound, got %v", err)
	}
}

func TestReplayVerifier_UnknownPolicy(t *testing.T) {
	v, store, _ := setupVerifier(t)
	ctx := context.Background()

	run, err := store.GetByID(ctx, "run-verify-1")
	if err != nil {
		t.Fatalf("load run: %v", err)
	}
	run.RunID = "run-verify-3"
	run.PolicyID = "UNREGISTERED"
	if err := store.Insert(ctx, run); err != nil {
		t.Fatalf("store run: %v", err)
	}

	_, err = v.VerifyRun(ctx, "run-verify-3")
	if !errors.Is(err, ErrUnknownPolicy) {
		t.Errorf("Expected ErrUnknownPolicy, got %v", err)
	}
}

func TestReplayVerifier_VerifyAll(t *testing.T) {
	v, _, _ := setupVerifier(t)

	report, err := v.VerifyAll(context.Background())
	if err != nil {
		t.Fatalf("VerifyAll failed: %v", err)
	}

	if report.TotalRuns != 1 || report.MatchedRuns != 1 || report.DivergentRuns != 0 {
		t.Errorf("Unexpected report: %+v", report)
	}
}
