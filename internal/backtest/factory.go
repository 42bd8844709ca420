package backtest

import (
	"errors"
	"log"

	"smc-lab/internal/domain"
)

// Policy type constants.
const (
	PolicyTypeSMC      = "SMC"
	PolicyTypeBreakout = "BREAKOUT"
)

// Factory errors.
var (
	ErrUnknownPolicyType = errors.New("unknown policy type")
	ErrMissingLookback   = errors.New("BREAKOUT requires Lookback")
	ErrMissingRiskReward = errors.New("BREAKOUT requires RiskReward")
	ErrMissingHTFSeries  = errors.New("SMC requires an HTF candle series")
)

// PolicyConfig selects and parameterizes an entry policy. Optional
// fields are pointers so missing parameters are detectable.
type PolicyConfig struct {
	PolicyType string

	// BREAKOUT parameters.
	Lookback   *int
	RiskReward *float64
	LongOnly   bool

	// SMC parameters; nil fields fall back to defaults.
	Detector *domain.DetectorConfig
	Filters  *domain.FilterConfig
	Risk     *domain.RiskConfig
}

// FromConfig creates an EntryPolicy, validating required parameters per
// policy type. htf is only consulted for the SMC policy.
func FromConfig(cfg PolicyConfig, htf []domain.Candle, logger *log.Logger) (EntryPolicy, error) {
	switch cfg.PolicyType {
	case PolicyTypeSMC:
		if len(htf) == 0 {
			return nil, ErrMissingHTFSeries
		}
		detectorCfg := domain.DefaultDetectorConfig()
		if cfg.Detector != nil {
			detectorCfg = *cfg.Detector
		}
		filterCfg := domain.DefaultFilterConfig()
		if cfg.Filters != nil {
			filterCfg = *cfg.Filters
		}
		riskCfg := domain.DefaultRiskConfig()
		if cfg.Risk != nil {
			riskCfg = *cfg.Risk
		}
		return NewSMCPolicy(htf, detectorCfg, filterCfg, riskCfg, logger)

	case PolicyTypeBreakout:
		if cfg.Lookback == nil {
			return nil, ErrMissingLookback
		}
		if cfg.RiskReward == nil {
			return nil, ErrMissingRiskReward
		}
		return NewBreakoutPolicy(*cfg.Lookback, *cfg.RiskReward, cfg.LongOnly), nil

	default:
		return nil, ErrUnknownPolicyType
	}
}
