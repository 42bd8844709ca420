package domain

// ZoneType tags the kind of structural zone a scan produced.
type ZoneType string

// Zone type constants.
const (
	ZoneOrderBlock    ZoneType = "ORDER_BLOCK"
	ZoneFairValueGap  ZoneType = "FAIR_VALUE_GAP"
	ZoneLiquidityPool ZoneType = "LIQUIDITY_POOL"
)

// Polarity is the directional bias of a zone or event.
type Polarity string

// Polarity constants.
const (
	PolarityBullish Polarity = "BULLISH"
	PolarityBearish Polarity = "BEARISH"
	PolarityNeutral Polarity = "NEUTRAL"
)

// StructuralZone is a price region produced by the HTF structure scan.
// Zones are read-only after creation; a rescan of an extended series
// supersedes earlier zones instead of mutating them.
type StructuralZone struct {
	Type     ZoneType
	Polarity Polarity

	// Price bounds. For single-level zones (liquidity pools) Top == Bottom.
	Top    float64
	Bottom float64

	// Originating bar index range within the scanned series.
	StartIndex int
	EndIndex   int

	// MaxAgeBars is the validity window after EndIndex. Zero means no limit.
	MaxAgeBars int

	// GapPct is the percentage spread for fair value gaps, 0 otherwise.
	GapPct float64

	// VolumeRatio is bar volume over trailing average for order blocks, 0 otherwise.
	VolumeRatio float64
}

// LiveAt reports whether the zone is still inside its validity window
// as of the given bar index. Stale zones are filtered at query time,
// never deleted.
func (z StructuralZone) LiveAt(barIndex int) bool {
	if barIndex < z.EndIndex {
		return false
	}
	if z.MaxAgeBars <= 0 {
		return true
	}
	return barIndex-z.EndIndex <= z.MaxAgeBars
}

// Mid returns the midpoint of the zone's price bounds.
func (z StructuralZone) Mid() float64 {
	return (z.Top + z.Bottom) / 2
}
