package domain

import "errors"

// Side is the direction of a signal or position.
type Side string

// Side constants.
const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// Signal validation errors. An invalid signal is rejected at
// construction time and never reaches the simulator.
var (
	ErrInvalidSide          = errors.New("signal side must be LONG or SHORT")
	ErrStopOnWrongSide      = errors.New("stop-loss does not bracket entry for side")
	ErrTargetOnWrongSide    = errors.New("take-profit does not bracket entry for side")
	ErrDegenerateRisk       = errors.New("risk distance must be strictly positive")
	ErrConfidenceOutOfRange = errors.New("confidence must be within [0,1]")
)

// Signal is an actionable trade recommendation produced by the synthesizer.
type Signal struct {
	SignalID  string
	Symbol    string
	Timeframe Timeframe // LTF the signal was evaluated on

	Side       Side
	Entry      float64
	StopLoss   float64
	TakeProfit float64
	Confidence float64 // [0,1]

	// FiltersPassed lists the names of the LTF filters that passed.
	FiltersPassed []string

	// Provenance.
	ZoneType     ZoneType
	ZonePolarity Polarity
	ZoneIndex    int // arena index of the originating zone
	TrendBias    TrendBias

	BarIndex    int
	TimestampMs int64
}

// Risk returns the entry-to-stop distance.
func (s *Signal) Risk() float64 {
	if s.Side == SideLong {
		return s.Entry - s.StopLoss
	}
	return s.StopLoss - s.Entry
}

// Reward returns the entry-to-target distance.
func (s *Signal) Reward() float64 {
	if s.Side == SideLong {
		return s.TakeProfit - s.Entry
	}
	return s.Entry - s.TakeProfit
}

// Validate checks the bracket invariant: stop and target on the correct
// sides of entry, with strictly positive risk and reward.
func (s *Signal) Validate() error {
	if s.Side != SideLong && s.Side != SideShort {
		return ErrInvalidSide
	}
	if s.Risk() <= 0 {
		if s.StopLoss == s.Entry {
			return ErrDegenerateRisk
		}
		return ErrStopOnWrongSide
	}
	if s.Reward() <= 0 {
		return ErrTargetOnWrongSide
	}
	if s.Confidence < 0 || s.Confidence > 1 {
		return ErrConfidenceOutOfRange
	}
	return nil
}
