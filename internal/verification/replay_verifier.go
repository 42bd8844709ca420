package verification

import (
	"context"
	"errors"
	"fmt"
	"log"

	"smc-lab/internal/backtest"
	"smc-lab/internal/domain"
	"smc-lab/internal/storage"
)

var (
	// ErrRunNotFound is returned when run ID doesn't exist.
	ErrRunNotFound = errors.New("backtest run not found")

	// ErrUnknownPolicy is returned when no replay config is registered
	// for a stored policy ID.
	ErrUnknownPolicy = errors.New("no replay config for policy")
)

// ReplayPolicy binds a stored policy ID to the configuration needed to
// rebuild it, including the HTF series timeframe for structure policies.
type ReplayPolicy struct {
	Config      backtest.PolicyConfig
	HTF         domain.Timeframe
	MaxHoldBars int
}

// ReplayVerifier implements Verifier by re-running the simulator over
// candles loaded from storage.
type ReplayVerifier struct {
	backtestStore storage.BacktestStore
	candleStore   storage.CandleStore

	// policies maps policy ID to its replay configuration.
	// Must be pre-populated with all policy IDs under verification.
	policies map[string]ReplayPolicy

	logger *log.Logger
}

// ReplayVerifierOptions contains configuration for creating a ReplayVerifier.
type ReplayVerifierOptions struct {
	BacktestStore storage.BacktestStore
	CandleStore   storage.CandleStore
	Policies      map[string]ReplayPolicy
	Logger        *log.Logger
}

// NewReplayVerifier creates a new ReplayVerifier.
func NewReplayVerifier(opts ReplayVerifierOptions) *ReplayVerifier {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &ReplayVerifier{
		backtestStore: opts.BacktestStore,
		candleStore:   opts.CandleStore,
		policies:      opts.Policies,
		logger:        logger,
	}
}

// Compile-time interface check.
var _ Verifier = (*ReplayVerifier)(nil)

// VerifyRun verifies a single run by replaying its simulation.
func (v *ReplayVerifier) VerifyRun(ctx context.Context, runID string) (*VerificationResult, error) {
	stored, err := v.backtestStore.GetByID(ctx, runID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	replayed, err := v.replayRun(ctx, stored)
	if err != nil {
		return nil, err
	}

	divergences := CompareTrades(stored.Trades, replayed)

	return &VerificationResult{
		RunID:          runID,
		Match:          len(divergences) == 0,
		Divergences:    divergences,
		StoredTrades:   len(stored.Trades),
		ReplayedTrades: len(replayed),
	}, nil
}

// VerifyAll verifies all stored runs.
func (v *ReplayVerifier) VerifyAll(ctx context.Context) (*VerificationReport, error) {
	runs, err := v.backtestStore.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &VerificationReport{
		TotalRuns: len(runs),
		Results:   make([]VerificationResult, 0, len(runs)),
	}

	for _, run := range runs {
		result, err := v.VerifyRun(ctx, run.RunID)
		if err != nil {
			return nil, fmt.Errorf("verify run %s: %w", run.RunID, err)
		}

		report.Results = append(report.Results, *result)
		if result.Match {
			report.MatchedRuns++
		} else {
			report.DivergentRuns++
			v.logger.Printf("Run %s diverged: %d field(s)", run.RunID, len(result.Divergences))
		}
	}

	return report, nil
}

// replayRun reconstructs the policy and re-runs the simulation over the
// run's original candle range.
func (v *ReplayVerifier) replayRun(ctx context.Context, run *domain.BacktestResult) ([]domain.Trade, error) {
	rp, ok := v.policies[run.PolicyID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownPolicy, run.PolicyID)
	}

	bars, err := v.candleStore.GetSeriesRange(ctx, run.Symbol, run.Timeframe, run.StartMs, run.EndMs)
	if err != nil {
		return nil, fmt.Errorf("load candles: %w", err)
	}

	var htf []domain.Candle
	if rp.HTF != "" {
		htf, err = v.candleStore.GetSeriesRange(ctx, run.Symbol, rp.HTF, run.StartMs, run.EndMs)
		if err != nil {
			return nil, fmt.Errorf("load htf candles: %w", err)
		}
	}

	policy, err := backtest.FromConfig(rp.Config, htf, v.logger)
	if err != nil {
		return nil, fmt.Errorf("rebuild policy: %w", err)
	}

	engine := backtest.NewEngine(policy, backtest.EngineConfig{MaxHoldBars: rp.MaxHoldBars}, v.logger)
	return engine.Run(bars), nil
}
