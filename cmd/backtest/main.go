package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"

	"smc-lab/internal/backtest"
	"smc-lab/internal/domain"
	"smc-lab/internal/idhash"
	"smc-lab/internal/perf"
	"smc-lab/internal/storage"
	chstore "smc-lab/internal/storage/clickhouse"
	"smc-lab/internal/storage/memory"
	pgstore "smc-lab/internal/storage/postgres"
)

func main() {
	// Parse flags
	symbol := flag.String("symbol", "", "Symbol to backtest (required)")
	timeframe := flag.String("timeframe", "15m", "Lower timeframe to simulate on")
	htf := flag.String("htf", "", "Higher timeframe for the SMC policy")
	fromTime := flag.String("from-time", "", "Range start (RFC3339, required)")
	toTime := flag.String("to-time", "", "Range end (RFC3339, required)")

	// Policy parameters
	policyType := flag.String("policy", "", "Policy: SMC or BREAKOUT (required)")
	lookback := flag.Int("lookback", 20, "Lookback window for BREAKOUT")
	riskReward := flag.Float64("risk-reward", 2.0, "Target distance in risk multiples for BREAKOUT")
	longOnly := flag.Bool("long-only", false, "Restrict BREAKOUT to long entries")
	maxHoldBars := flag.Int("max-hold-bars", 0, "Force TIME_LIMIT exit after N bars (0 disables)")

	// Storage
	postgresDSN := flag.String("postgres-dsn", "", "PostgreSQL connection string (runs)")
	clickhouseDSN := flag.String("clickhouse-dsn", "", "ClickHouse connection string (candles)")
	useMemory := flag.Bool("use-memory", false, "Use in-memory storage")

	// Output
	outputJSON := flag.Bool("json", false, "Output as JSON")
	persistResult := flag.Bool("persist", false, "Persist the run to storage")
	deterministicID := flag.Bool("deterministic-id", false, "Derive the run ID from the run identity instead of a random UUID")

	flag.Parse()

	// Setup logger
	logger := log.New(os.Stderr, "[backtest] ", log.LstdFlags)

	// Validate required flags
	if *symbol == "" {
		logger.Fatal("--symbol is required")
	}
	if *policyType == "" {
		logger.Fatal("--policy is required")
	}
	if *fromTime == "" || *toTime == "" {
		logger.Fatal("--from-time and --to-time are required")
	}

	*policyType = strings.ToUpper(*policyType)
	if *policyType != backtest.PolicyTypeSMC && *policyType != backtest.PolicyTypeBreakout {
		logger.Fatalf("Invalid policy: %s. Must be SMC or BREAKOUT", *policyType)
	}

	ltf := domain.Timeframe(*timeframe)
	if ltf.Minutes() == 0 {
		logger.Fatalf("Invalid timeframe: %s", *timeframe)
	}
	var htfTF domain.Timeframe
	if *htf != "" {
		htfTF = domain.Timeframe(*htf)
		if htfTF.Minutes() == 0 {
			logger.Fatalf("Invalid htf: %s", *htf)
		}
	}
	if *policyType == backtest.PolicyTypeSMC && htfTF == "" {
		logger.Fatal("--htf is required for the SMC policy")
	}

	startMs, endMs, err := parseRange(*fromTime, *toTime)
	if err != nil {
		logger.Fatalf("Invalid range: %v", err)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	// Create stores
	var candleStore storage.CandleStore = memory.NewCandleStore()
	var backtestStore storage.BacktestStore = memory.NewBacktestStore()

	if !*useMemory {
		if *clickhouseDSN == "" {
			logger.Fatal("--clickhouse-dsn is required when not using --use-memory (candles)")
		}

		conn, err := chstore.NewConn(ctx, *clickhouseDSN)
		if err != nil {
			logger.Fatalf("connect to clickhouse: %v", err)
		}
		defer conn.Close()
		candleStore = chstore.NewCandleStore(conn)

		if *persistResult {
			if *postgresDSN == "" {
				logger.Fatal("--postgres-dsn is required with --persist (runs)")
			}
			pool, err := pgstore.NewPool(ctx, *postgresDSN)
			if err != nil {
				logger.Fatalf("connect to postgres: %v", err)
			}
			defer pool.Close()
			backtestStore = pgstore.NewBacktestStore(pool)
		}
	}

	// Load candles
	bars, err := candleStore.GetSeriesRange(ctx, *symbol, ltf, startMs, endMs)
	if err != nil {
		logger.Fatalf("load candles: %v", err)
	}
	if len(bars) == 0 {
		logger.Fatalf("no candles for %s/%s in range", *symbol, ltf)
	}

	var htfBars []domain.Candle
	if htfTF != "" {
		htfBars, err = candleStore.GetSeriesRange(ctx, *symbol, htfTF, startMs, endMs)
		if err != nil {
			logger.Fatalf("load htf candles: %v", err)
		}
	}

	// Build policy and simulate
	cfg := backtest.PolicyConfig{PolicyType: *policyType}
	if *policyType == backtest.PolicyTypeBreakout {
		cfg.Lookback = lookback
		cfg.RiskReward = riskReward
		cfg.LongOnly = *longOnly
	}

	policy, err := backtest.FromConfig(cfg, htfBars, logger)
	if err != nil {
		logger.Fatalf("build policy: %v", err)
	}

	logger.Printf("Running backtest: symbol=%s timeframe=%s policy=%s bars=%d",
		*symbol, ltf, policy.ID(), len(bars))

	engine := backtest.NewEngine(policy, backtest.EngineConfig{MaxHoldBars: *maxHoldBars}, logger)
	trades := engine.Run(bars)

	runID := uuid.NewString()
	if *deterministicID {
		runID = idhash.ComputeRunID(*symbol, string(ltf), startMs, endMs, policy.ID())
	}

	result := &domain.BacktestResult{
		RunID:     runID,
		Symbol:    *symbol,
		Timeframe: ltf,
		StartMs:   startMs,
		EndMs:     endMs,
		PolicyID:  policy.ID(),
		Trades:    trades,
		Stats:     perf.Compute(trades),
	}

	if *persistResult {
		if err := backtestStore.Insert(ctx, result); err != nil {
			logger.Fatalf("persist run: %v", err)
		}
		logger.Printf("Persisted run %s", result.RunID)
	}

	// Output result
	if *outputJSON {
		output, _ := json.MarshalIndent(result, "", "  ")
		fmt.Println(string(output))
	} else {
		printResult(result)
	}
}

// parseRange parses the RFC3339 range flags into Unix milliseconds.
func parseRange(fromStr, toStr string) (int64, int64, error) {
	from, err := time.Parse(time.RFC3339, fromStr)
	if err != nil {
		return 0, 0, fmt.Errorf("parse from-time: %w", err)
	}
	to, err := time.Parse(time.RFC3339, toStr)
	if err != nil {
		return 0, 0, fmt.Errorf("parse to-time: %w", err)
	}
	if !to.After(from) {
		return 0, 0, fmt.Errorf("to-time must be after from-time")
	}
	return from.UnixMilli(), to.UnixMilli(), nil
}

// printResult outputs a human-readable run summary.
func printResult(r *domain.BacktestResult) {
	fmt.Println()
	fmt.Println("=== Backtest Result ===")
	fmt.Printf("Run ID:             %s\n", r.RunID)
	fmt.Printf("Symbol:             %s\n", r.Symbol)
	fmt.Printf("Timeframe:          %s\n", r.Timeframe)
	fmt.Printf("Policy:             %s\n", r.PolicyID)
	fmt.Printf("Range:              %s .. %s\n",
		time.UnixMilli(r.StartMs).Format(time.RFC3339),
		time.UnixMilli(r.EndMs).Format(time.RFC3339))
	fmt.Println()

	s := r.Stats
	fmt.Println("Stats:")
	fmt.Printf("  Trades:           %d (%d winners, %d losers)\n", s.TotalTrades, s.Winners, s.Losers)
	fmt.Printf("  Win Rate:         %.2f%%\n", s.WinRate*100)
	fmt.Printf("  Profit Factor:    %.4f\n", s.ProfitFactor)
	fmt.Printf("  Avg R:            %.4f\n", s.AvgR)
	fmt.Printf("  Median R:         %.4f\n", s.MedianR)
	fmt.Printf("  P10 / P90 R:      %.4f / %.4f\n", s.P10R, s.P90R)
	fmt.Printf("  Max Drawdown R:   %.4f\n", s.MaxDrawdownR)
	fmt.Printf("  Equity DD R:      %.4f\n", s.EquityDrawdownR)
	fmt.Printf("  Max Consec Loss:  %d\n", s.MaxConsecutiveLosses)
	fmt.Println()

	fmt.Println("Trades:")
	for i, t := range r.Trades {
		fmt.Printf("  [%d] %-5s entry %.4f @ %s exit %.4f (%s) R=%.3f\n",
			i, t.Side, t.EntryPrice,
			time.UnixMilli(t.EntryTimeMs).Format(time.RFC3339),
			t.ExitPrice, t.ExitReason, t.RMultiple)
	}
}
