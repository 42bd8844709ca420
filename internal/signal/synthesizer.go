// Package signal synthesizes trade signals from HTF structure state and
// LTF confirmation. One evaluation step runs per new LTF bar and emits
// zero or one signal.
package signal

import (
	"fmt"
	"log"

	"smc-lab/internal/confirm"
	"smc-lab/internal/domain"
	"smc-lab/internal/idhash"
	"smc-lab/internal/indicator"
	"smc-lab/internal/structure"
)

// State is the synthesizer's per-step outcome state.
type State string

// Evaluation step states.
const (
	StateScanning State = "SCANNING"
	StateEmitted  State = "EMITTED"
	StateRejected State = "REJECTED"
)

// StepResult is the outcome of one evaluation step. Signal is non-nil
// only when State is EMITTED. Reason explains rejections; a missing
// setup is a silent rejection, not an error.
type StepResult struct {
	State  State
	Reason string
	Signal *domain.Signal
}

// Synthesizer combines structure scans with LTF confirmation under a
// fixed risk configuration. It owns per-run duplicate-suppression state;
// each backtest or live session uses its own instance.
type Synthesizer struct {
	risk   domain.RiskConfig
	engine *confirm.Engine
	logger *log.Logger

	// emitted maps arena zone index to the bar index it was emitted at,
	// suppressing duplicate signals within the zone's validity window.
	emitted map[int]int
}

// NewSynthesizer creates a synthesizer. Invalid risk parameters are
// rejected here so a malformed configuration can never emit.
func NewSynthesizer(risk domain.RiskConfig, engine *confirm.Engine, logger *log.Logger) (*Synthesizer, error) {
	if err := risk.Validate(); err != nil {
		return nil, err
	}
	return &Synthesizer{
		risk:    risk,
		engine:  engine,
		logger:  logger,
		emitted: make(map[int]int),
	}, nil
}

// Evaluate runs one step against the current last LTF bar.
func (s *Synthesizer) Evaluate(scan *structure.ScanResult, arena *structure.Arena, ltf []domain.Candle) StepResult {
	if len(ltf) == 0 {
		return StepResult{State: StateScanning, Reason: "no bars"}
	}

	// 1. Require a non-neutral HTF bias with a live matching zone.
	if scan.Bias == domain.TrendNeutral {
		return StepResult{State: StateScanning, Reason: "neutral HTF bias"}
	}

	last := ltf[len(ltf)-1]
	barIndex := len(ltf) - 1

	// 2. Most recent unexpired zone of matching polarity, proximity tie-break.
	zoneIdx, zone := arena.SelectZone(scan.Bias, scan.LastIndex, last.Close)
	if zoneIdx < 0 {
		return StepResult{State: StateScanning, Reason: "no live zone matching bias"}
	}
	if _, dup := s.emitted[zoneIdx]; dup {
		return StepResult{State: StateRejected, Reason: "zone already produced a signal"}
	}

	side := domain.SideLong
	if scan.Bias == domain.TrendBearish {
		side = domain.SideShort
	}

	// 3. Entry, stop and target levels.
	entry := last.Close
	buffer := indicator.ATR(ltf, s.risk.ATRPeriod) * s.risk.StopATRBuffer

	var stop, target float64
	if side == domain.SideLong {
		stop = zone.Bottom - buffer
		target = entry + (entry-stop)*s.risk.MinRiskReward
	} else {
		stop = zone.Top + buffer
		target = entry - (stop-entry)*s.risk.MinRiskReward
	}
	if stop == entry {
		// Degenerate zone: R-multiple math would divide by zero.
		return StepResult{State: StateRejected, Reason: "degenerate stop at entry"}
	}

	// 4. Filter policy.
	ev := s.engine.Evaluate(ltf, side)
	if !ev.PolicyMet {
		return StepResult{
			State:  StateRejected,
			Reason: fmt.Sprintf("filter policy not met: %d passed", len(ev.Passed)),
		}
	}

	// 5. Confidence score. Zone selection only returns bias-aligned zones,
	// so every candidate earns the trend bonus; BOS and sweep evidence in
	// the trade direction each add one filter increment on top.
	confidence := s.risk.BaseConfidence + float64(len(ev.Passed))*s.risk.FilterIncrement
	confidence += s.risk.TrendBonus
	if ev.BOS != nil && ev.BOS.Direction == sidePolarity(side) {
		confidence += s.risk.FilterIncrement
	}
	if ev.Sweep != nil && ev.Sweep.Direction == sidePolarity(side) {
		confidence += s.risk.FilterIncrement
	}
	if confidence > 1 {
		confidence = 1
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence < s.risk.MinConfidence {
		return StepResult{
			State:  StateRejected,
			Reason: fmt.Sprintf("confidence %.2f below minimum %.2f", confidence, s.risk.MinConfidence),
		}
	}

	// 6. Emit exactly one validated signal for this step.
	sig := &domain.Signal{
		SignalID:      idhash.ComputeSignalID(last.Symbol, string(last.Timeframe), last.OpenTimeMs, string(side), zoneIdx),
		Symbol:        last.Symbol,
		Timeframe:     last.Timeframe,
		Side:          side,
		Entry:         entry,
		StopLoss:      stop,
		TakeProfit:    target,
		Confidence:    confidence,
		FiltersPassed: ev.Passed,
		ZoneType:      zone.Type,
		ZonePolarity:  zone.Polarity,
		ZoneIndex:     zoneIdx,
		TrendBias:     scan.Bias,
		BarIndex:      barIndex,
		TimestampMs:   last.OpenTimeMs,
	}
	if err := sig.Validate(); err != nil {
		if s.logger != nil {
			s.logger.Printf("rejecting invalid signal for zone %d: %v", zoneIdx, err)
		}
		return StepResult{State: StateRejected, Reason: err.Error()}
	}

	s.emitted[zoneIdx] = barIndex
	return StepResult{State: StateEmitted, Signal: sig}
}

// sidePolarity maps a trade side to the polarity of evidence that
// corroborates it.
func sidePolarity(side domain.Side) domain.Polarity {
	if side == domain.SideLong {
		return domain.PolarityBullish
	}
	return domain.PolarityBearish
}
