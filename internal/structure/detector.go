// Package structure implements the higher-timeframe structure scan:
// trend bias, order blocks, fair value gaps and liquidity pools.
//
// The four sub-detectors are independent and failure-isolated: a panic
// inside one is recovered, logged and reported as an empty result for
// that sub-detector only. A scan never aborts as a whole.
package structure

import (
	"fmt"
	"log"

	"smc-lab/internal/domain"
)

// SubResult is the outcome of a single sub-detector. Err is non-nil only
// when the sub-detector failed internally; an empty zone list with a nil
// Err means no pattern was found.
type SubResult struct {
	Zones []domain.StructuralZone
	Err   error
}

// ScanResult holds one full structure scan over an HTF series.
type ScanResult struct {
	Bias domain.TrendBias

	OrderBlocks   SubResult
	FairValueGaps SubResult
	Pools         SubResult

	// LastIndex is the final bar index of the scanned series.
	LastIndex int
}

// Arena collects the scan's zones indexed by creation order. Liveness is
// evaluated at query time against an explicit bar index; nothing is
// deleted, which keeps replays deterministic.
func (r *ScanResult) Arena() *Arena {
	a := &Arena{}
	a.Add(r.OrderBlocks.Zones...)
	a.Add(r.FairValueGaps.Zones...)
	a.Add(r.Pools.Zones...)
	return a
}

// Detector runs structure scans with a fixed configuration.
type Detector struct {
	cfg    domain.DetectorConfig
	logger *log.Logger
}

// NewDetector creates a detector. A nil logger disables failure logging.
func NewDetector(cfg domain.DetectorConfig, logger *log.Logger) *Detector {
	return &Detector{cfg: cfg, logger: logger}
}

// Scan runs all sub-detectors over the series. Series shorter than
// MinBars produce a neutral bias and empty zone sets, not an error.
func (d *Detector) Scan(bars []domain.Candle) *ScanResult {
	res := &ScanResult{
		Bias:      domain.TrendNeutral,
		LastIndex: len(bars) - 1,
	}
	if len(bars) < d.cfg.MinBars {
		return res
	}

	res.Bias = TrendBias(bars, d.cfg.TrendMAPeriod)
	res.OrderBlocks = d.run("order blocks", bars, DetectOrderBlocks)
	res.FairValueGaps = d.run("fair value gaps", bars, DetectFairValueGaps)
	res.Pools = d.run("liquidity pools", bars, DetectLiquidityPools)
	return res
}

// run executes one sub-detector with panic isolation.
func (d *Detector) run(name string, bars []domain.Candle, fn func([]domain.Candle, domain.DetectorConfig) []domain.StructuralZone) (res SubResult) {
	defer func() {
		if r := recover(); r != nil {
			res = SubResult{Err: fmt.Errorf("%s sub-detector: %v", name, r)}
			if d.logger != nil {
				d.logger.Printf("sub-detector %q failed, returning empty result: %v", name, r)
			}
		}
	}()
	return SubResult{Zones: fn(bars, d.cfg)}
}
