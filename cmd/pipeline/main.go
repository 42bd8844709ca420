// Package main provides the end-to-end batch entry point.
// Executes: candle loading → simulation → stats → persistence →
// verification → reporting, driven by a YAML job file.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"smc-lab/internal/backtest"
	"smc-lab/internal/config"
	"smc-lab/internal/domain"
	"smc-lab/internal/orchestrator"
	"smc-lab/internal/reporting"
	"smc-lab/internal/storage"
	chstore "smc-lab/internal/storage/clickhouse"
	"smc-lab/internal/storage/memory"
	pgstore "smc-lab/internal/storage/postgres"
	"smc-lab/internal/verification"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using config values")
	}

	// Parse flags
	configPath := flag.String("config", "config.yaml", "Path to the YAML job file")
	outputDir := flag.String("output-dir", "docs", "Output directory for generated reports")
	skipVerify := flag.Bool("skip-verify", false, "Skip the replay verification phase")
	verbose := flag.Bool("verbose", false, "Verbose output")
	flag.Parse()

	logger := log.New(os.Stderr, "[pipeline] ", log.LstdFlags)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}

	// Create context with cancellation for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Printf("\nReceived signal %v, cancelling pipeline...\n", sig)
		cancel()
	}()

	// Create stores
	candleStore, backtestStore, signalStore, closeStores, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("create stores: %v", err)
	}
	defer closeStores()

	// Build jobs and the replay policy registry from the same configs
	jobs := make([]orchestrator.Job, 0, len(cfg.Jobs))
	policies := make(map[string]verification.ReplayPolicy)
	for _, jc := range cfg.Jobs {
		policyCfg, err := buildPolicyConfig(jc.Policy)
		if err != nil {
			logger.Fatalf("job %s/%s: %v", jc.Symbol, jc.Timeframe, err)
		}

		job := orchestrator.Job{
			Symbol:      jc.Symbol,
			Timeframe:   domain.Timeframe(jc.Timeframe),
			HTF:         domain.Timeframe(jc.HTF),
			StartMs:     jc.StartMs,
			EndMs:       jc.EndMs,
			Policy:      policyCfg,
			MaxHoldBars: cfg.MaxHold(jc),
		}
		jobs = append(jobs, job)

		policy, err := backtest.FromConfig(policyCfg, placeholderHTF(policyCfg), nil)
		if err != nil {
			logger.Fatalf("job %s/%s: build policy: %v", jc.Symbol, jc.Timeframe, err)
		}
		policies[policy.ID()] = verification.ReplayPolicy{
			Config:      policyCfg,
			HTF:         job.HTF,
			MaxHoldBars: job.MaxHoldBars,
		}
	}

	// Phase 1-2: simulate and persist
	fmt.Println("=== Backtest Pipeline ===")
	orch := orchestrator.New(orchestrator.Options{
		CandleStore:   candleStore,
		BacktestStore: backtestStore,
		Verbose:       *verbose,
	})

	result, err := orch.Run(ctx, jobs)
	if err != nil {
		logger.Fatalf("orchestrator: %v", err)
	}

	fmt.Printf("Orchestrator completed:\n")
	fmt.Printf("  Jobs:   %d\n", result.JobsProcessed)
	fmt.Printf("  Runs:   %d stored, %d duplicates skipped\n", result.RunsStored, result.DuplicatesSkipped)
	fmt.Printf("  Trades: %d\n", result.TradesCreated)
	if len(result.Errors) > 0 {
		fmt.Printf("  Errors: %d\n", len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("    - %s\n", e)
		}
	}

	// Phase 3: verification
	if !*skipVerify {
		fmt.Println("\n=== Verification ===")
		verifier := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
			BacktestStore: backtestStore,
			CandleStore:   candleStore,
			Policies:      policies,
			Logger:        logger,
		})

		report, err := verifier.VerifyAll(ctx)
		if err != nil {
			logger.Fatalf("verification: %v", err)
		}
		fmt.Printf("Verified %d runs: %d matched, %d divergent\n",
			report.TotalRuns, report.MatchedRuns, report.DivergentRuns)
		if report.DivergentRuns > 0 {
			logger.Fatalf("%d runs diverged on replay", report.DivergentRuns)
		}
	}

	// Phase 4: reporting
	fmt.Println("\n=== Reporting ===")
	generator := reporting.NewGenerator(backtestStore, signalStore)
	report, err := generator.Generate(ctx)
	if err != nil {
		logger.Fatalf("generate report: %v", err)
	}

	if err := writeReports(*outputDir, report); err != nil {
		logger.Fatalf("write reports: %v", err)
	}

	fmt.Println("\nPipeline completed successfully:")
	fmt.Printf("  - %s/REPORT.md\n", *outputDir)
	fmt.Printf("  - %s/run_metrics.csv\n", *outputDir)
	fmt.Printf("  - %s/report.json\n", *outputDir)
}

// createStores builds the storage layer for the configured backend.
func createStores(ctx context.Context, cfg *config.Config) (storage.CandleStore, storage.BacktestStore, storage.SignalStore, func(), error) {
	if cfg.Storage.UseMemory {
		return memory.NewCandleStore(), memory.NewBacktestStore(), memory.NewSignalStore(), func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}

	conn, err := chstore.NewConn(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, nil, nil, fmt.Errorf("connect to clickhouse: %w", err)
	}

	closeAll := func() {
		conn.Close()
		pool.Close()
	}
	return chstore.NewCandleStore(conn), pgstore.NewBacktestStore(pool), pgstore.NewSignalStore(pool), closeAll, nil
}

// buildPolicyConfig maps a YAML policy section onto the simulator config.
func buildPolicyConfig(pc config.PolicyConfig) (backtest.PolicyConfig, error) {
	switch strings.ToUpper(pc.Type) {
	case backtest.PolicyTypeBreakout:
		return backtest.PolicyConfig{
			PolicyType: backtest.PolicyTypeBreakout,
			Lookback:   pc.Lookback,
			RiskReward: pc.RiskReward,
			LongOnly:   pc.LongOnly,
		}, nil

	case backtest.PolicyTypeSMC:
		cfg := backtest.PolicyConfig{PolicyType: backtest.PolicyTypeSMC}

		risk := domain.DefaultRiskConfig()
		if pc.MinRiskReward != nil {
			risk.MinRiskReward = *pc.MinRiskReward
		}
		if pc.MinConfidence != nil {
			risk.MinConfidence = *pc.MinConfidence
		}
		cfg.Risk = &risk

		if pc.MinFilters != nil {
			filters := domain.DefaultFilterConfig()
			filters.MinPasses = *pc.MinFilters
			cfg.Filters = &filters
		}
		return cfg, nil

	default:
		return backtest.PolicyConfig{}, fmt.Errorf("unknown policy type %q", pc.Type)
	}
}

// placeholderHTF supplies a minimal HTF series so the policy ID can be
// derived before real candles are loaded. Policy IDs depend only on
// parameters, not on data.
func placeholderHTF(cfg backtest.PolicyConfig) []domain.Candle {
	if cfg.PolicyType != backtest.PolicyTypeSMC {
		return nil
	}
	return []domain.Candle{{
		Symbol:     "_",
		Timeframe:  domain.Timeframe1d,
		OpenTimeMs: 0,
		Open:       1, High: 1, Low: 1, Close: 1, Volume: 1,
	}}
}

// writeReports renders all report formats into the output directory.
func writeReports(outputDir string, report *reporting.Report) error {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return err
	}

	md := reporting.RenderMarkdown(report)
	if err := os.WriteFile(filepath.Join(outputDir, "REPORT.md"), []byte(md), 0o644); err != nil {
		return err
	}

	csv := reporting.RenderCSV(report.RunMetrics)
	if err := os.WriteFile(filepath.Join(outputDir, "run_metrics.csv"), []byte(csv), 0o644); err != nil {
		return err
	}

	js, err := reporting.RenderJSON(report)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(outputDir, "report.json"), []byte(js), 0o644)
}
