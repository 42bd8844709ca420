// Package confirm implements the lower-timeframe confirmation engine:
// indicator filters gating signal eligibility plus break-of-structure
// and liquidity-sweep detection as corroborating evidence.
package confirm

import (
	"fmt"
	"log"

	"smc-lab/internal/domain"
)

// Evaluation is the engine's verdict for one LTF bar.
type Evaluation struct {
	Results   []FilterResult
	Passed    []string // names of filters that passed, in evaluation order
	PolicyMet bool     // at least MinPasses of the enabled filters passed

	// Optional corroborating evidence; nil when not present on this bar.
	BOS   *domain.BOSEvent
	Sweep *domain.LiquiditySweep
}

// Engine evaluates enabled filters under a pass-count policy.
type Engine struct {
	cfg    domain.FilterConfig
	logger *log.Logger
}

// NewEngine creates an engine. Returns an error for an impossible
// pass-count policy.
func NewEngine(cfg domain.FilterConfig, logger *log.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{cfg: cfg, logger: logger}, nil
}

// Evaluate runs every enabled filter against the current (last) bar for
// the given side. Filters are failure-isolated: a panic inside one is
// recovered and reported as a failed filter, never propagated.
func (e *Engine) Evaluate(bars []domain.Candle, side domain.Side) *Evaluation {
	ev := &Evaluation{}
	if len(bars) == 0 {
		return ev
	}

	for _, name := range e.cfg.Enabled {
		fn, ok := filterFuncs[name]
		if !ok {
			continue
		}
		res := e.runFilter(name, fn, bars, side)
		ev.Results = append(ev.Results, res)
		if res.Passed {
			ev.Passed = append(ev.Passed, string(res.Name))
		}
	}

	ev.PolicyMet = len(ev.Passed) >= e.cfg.MinPasses
	ev.BOS = DetectBOS(bars, e.cfg.SwingWindow)
	ev.Sweep = DetectSweep(bars, e.cfg.SwingWindow)
	return ev
}

// runFilter executes one filter with panic isolation.
func (e *Engine) runFilter(name domain.FilterName, fn filterFunc, bars []domain.Candle, side domain.Side) (res FilterResult) {
	defer func() {
		if r := recover(); r != nil {
			res = FilterResult{
				Name:      name,
				Rationale: fmt.Sprintf("filter failed internally: %v", r),
			}
			if e.logger != nil {
				e.logger.Printf("filter %q failed, counting as not passed: %v", name, r)
			}
		}
	}()
	return fn(bars, side, e.cfg)
}
