// Package orchestrator provides E2E pipeline orchestration.
// It coordinates: candle loading → simulation → stats → persistence
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log"

	"smc-lab/internal/backtest"
	"smc-lab/internal/domain"
	"smc-lab/internal/idhash"
	"smc-lab/internal/perf"
	"smc-lab/internal/storage"
)

// Job describes one backtest to execute: a symbol/timeframe range and
// the policy to run over it.
type Job struct {
	Symbol    string
	Timeframe domain.Timeframe

	// HTF is the higher timeframe for structure policies. Empty for
	// policies that do not need one.
	HTF domain.Timeframe

	StartMs int64
	EndMs   int64

	Policy      backtest.PolicyConfig
	MaxHoldBars int
}

// Orchestrator coordinates batch backtest execution.
type Orchestrator struct {
	candleStore   storage.CandleStore
	backtestStore storage.BacktestStore
	verbose       bool
}

// Options for creating Orchestrator.
type Options struct {
	CandleStore   storage.CandleStore
	BacktestStore storage.BacktestStore
	Verbose       bool
}

// New creates a new Orchestrator.
func New(opts Options) *Orchestrator {
	return &Orchestrator{
		candleStore:   opts.CandleStore,
		backtestStore: opts.BacktestStore,
		verbose:       opts.Verbose,
	}
}

// RunResult contains results from orchestrator execution.
type RunResult struct {
	JobsProcessed     int
	RunsStored        int
	TradesCreated     int
	DuplicatesSkipped int
	Errors            []string
}

// Run executes all jobs.
// Phases per job:
//  1. Load candles (LTF, and HTF when required)
//  2. Build policy and simulate
//  3. Compute performance stats
//  4. Persist the run; duplicate run IDs are skipped
func (o *Orchestrator) Run(ctx context.Context, jobs []Job) (*RunResult, error) {
	result := &RunResult{}

	o.log("Running %d jobs...", len(jobs))

	for _, job := range jobs {
		result.JobsProcessed++

		run, err := o.runJob(ctx, job)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("job %s/%s: %v", job.Symbol, job.Timeframe, err))
			continue
		}
		if run == nil {
			continue
		}

		if err := o.backtestStore.Insert(ctx, run); err != nil {
			if errors.Is(err, storage.ErrDuplicateKey) {
				result.DuplicatesSkipped++
				o.log("  Run %s already stored, skipping", run.RunID)
				continue
			}
			result.Errors = append(result.Errors,
				fmt.Sprintf("store run %s: %v", run.RunID, err))
			continue
		}

		result.RunsStored++
		result.TradesCreated += len(run.Trades)
		o.log("  Stored run %s: %d trades", run.RunID, len(run.Trades))
	}

	o.log("Pipeline completed: %d jobs, %d runs stored, %d trades, %d dupes, %d errors",
		result.JobsProcessed, result.RunsStored, result.TradesCreated,
		result.DuplicatesSkipped, len(result.Errors))

	return result, nil
}

// runJob loads data and simulates one job. Returns nil when the range
// holds no candles.
func (o *Orchestrator) runJob(ctx context.Context, job Job) (*domain.BacktestResult, error) {
	bars, err := o.candleStore.GetSeriesRange(ctx, job.Symbol, job.Timeframe, job.StartMs, job.EndMs)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}
	if len(bars) == 0 {
		o.log("  No candles for %s/%s in range, skipping", job.Symbol, job.Timeframe)
		return nil, nil
	}
	if err := domain.ValidateCandles(bars); err != nil {
		return nil, fmt.Errorf("candle series: %w", err)
	}

	var htf []domain.Candle
	if job.HTF != "" {
		htf, err = o.candleStore.GetSeriesRange(ctx, job.Symbol, job.HTF, job.StartMs, job.EndMs)
		if err != nil {
			return nil, fmt.Errorf("load htf candles: %w", err)
		}
		if err := domain.ValidateCandles(htf); err != nil {
			return nil, fmt.Errorf("htf candle series: %w", err)
		}
	}

	policy, err := backtest.FromConfig(job.Policy, htf, nil)
	if err != nil {
		return nil, fmt.Errorf("build policy: %w", err)
	}

	engine := backtest.NewEngine(policy, backtest.EngineConfig{MaxHoldBars: job.MaxHoldBars}, nil)
	trades := engine.Run(bars)

	return &domain.BacktestResult{
		RunID:     idhash.ComputeRunID(job.Symbol, string(job.Timeframe), job.StartMs, job.EndMs, policy.ID()),
		Symbol:    job.Symbol,
		Timeframe: job.Timeframe,
		StartMs:   job.StartMs,
		EndMs:     job.EndMs,
		PolicyID:  policy.ID(),
		Trades:    trades,
		Stats:     perf.Compute(trades),
	}, nil
}

func (o *Orchestrator) log(format string, args ...interface{}) {
	if o.verbose {
		log.Printf("[orchestrator] "+format, args...)
	}
}
