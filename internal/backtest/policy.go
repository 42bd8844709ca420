package backtest

import "smc-lab/internal/domain"

// EntryDecision is a policy's answer for one bar while the simulator is
// flat. Entry is taken at the decision bar's close.
type EntryDecision struct {
	Enter  bool
	Side   domain.Side
	Stop   float64
	Target float64

	// Signal carries provenance when the decision came from the
	// synthesizer; nil for rule-based policies.
	Signal *domain.Signal
}

// EntryPolicy produces entry decisions from the bars seen so far.
// Implementations must be deterministic: the same prefix of bars always
// yields the same decision.
type EntryPolicy interface {
	// OnBar is called once per bar while flat with bars[:i+1].
	OnBar(bars []domain.Candle, i int) EntryDecision

	// ID returns the policy identifier including parameters.
	ID() string
}
