package backtest

import (
	"fmt"
	"log"

	"smc-lab/internal/confirm"
	"smc-lab/internal/domain"
	"smc-lab/internal/signal"
	"smc-lab/internal/structure"
)

// SMCPolicy adapts the signal synthesizer into an entry policy. The HTF
// structure scan is computed once at construction over the supplied HTF
// series; each simulated LTF bar is then evaluated against that state.
type SMCPolicy struct {
	scan  *structure.ScanResult
	arena *structure.Arena
	synth *signal.Synthesizer

	detectorCfg domain.DetectorConfig
	filterCfg   domain.FilterConfig
	riskCfg     domain.RiskConfig
}

// NewSMCPolicy builds the policy from an HTF series and configuration.
// The series is materialized through the domain boundary check, so an
// unsorted or duplicated HTF feed fails here instead of skewing the scan.
func NewSMCPolicy(htf []domain.Candle, detectorCfg domain.DetectorConfig, filterCfg domain.FilterConfig, riskCfg domain.RiskConfig, logger *log.Logger) (*SMCPolicy, error) {
	htfBars, err := domain.Materialize(domain.SliceSeries(htf))
	if err != nil {
		return nil, fmt.Errorf("htf series: %w", err)
	}

	engine, err := confirm.NewEngine(filterCfg, logger)
	if err != nil {
		return nil, err
	}
	synth, err := signal.NewSynthesizer(riskCfg, engine, logger)
	if err != nil {
		return nil, err
	}

	detector := structure.NewDetector(detectorCfg, logger)
	scan := detector.Scan(htfBars)

	return &SMCPolicy{
		scan:        scan,
		arena:       scan.Arena(),
		synth:       synth,
		detectorCfg: detectorCfg,
		filterCfg:   filterCfg,
		riskCfg:     riskCfg,
	}, nil
}

// OnBar evaluates one synthesizer step over the bars seen so far.
func (p *SMCPolicy) OnBar(bars []domain.Candle, i int) EntryDecision {
	res := p.synth.Evaluate(p.scan, p.arena, bars[:i+1])
	if res.State != signal.StateEmitted {
		return EntryDecision{}
	}

	sig := res.Signal
	return EntryDecision{
		Enter:  true,
		Side:   sig.Side,
		Stop:   sig.StopLoss,
		Target: sig.TakeProfit,
		Signal: sig,
	}
}

// ID returns the policy identifier including its core parameters.
func (p *SMCPolicy) ID() string {
	return fmt.Sprintf("SMC_ma%d_vr%.2f_gap%.2f_rr%.1f_conf%.2f",
		p.detectorCfg.TrendMAPeriod,
		p.detectorCfg.VolumeRatioThreshold,
		p.detectorCfg.MinGapPct,
		p.riskCfg.MinRiskReward,
		p.riskCfg.MinConfidence)
}

var _ EntryPolicy = (*SMCPolicy)(nil)
