package structure

import (
	"math"

	"smc-lab/internal/domain"
)

// Arena is an append-only zone collection indexed by creation order.
type Arena struct {
	zones []domain.StructuralZone
}

// Add appends zones in creation order.
func (a *Arena) Add(zones ...domain.StructuralZone) {
	a.zones = append(a.zones, zones...)
}

// Len returns the number of zones ever created.
func (a *Arena) Len() int { return len(a.zones) }

// At returns the zone at arena index i.
func (a *Arena) At(i int) domain.StructuralZone { return a.zones[i] }

// LiveAt returns the arena indices of zones still inside their validity
// window as of barIndex, in creation order.
func (a *Arena) LiveAt(barIndex int) []int {
	var out []int
	for i, z := range a.zones {
		if z.LiveAt(barIndex) {
			out = append(out, i)
		}
	}
	return out
}

// SelectZone picks the entry zone for a bias at barIndex: the most recent
// unexpired zone of matching polarity, ties broken by proximity of the
// zone midpoint to price. Returns (-1, zero zone) when nothing matches.
func (a *Arena) SelectZone(bias domain.TrendBias, barIndex int, price float64) (int, domain.StructuralZone) {
	best := -1
	bestEnd := -1
	bestDist := math.Inf(1)

	for i, z := range a.zones {
		if !bias.Matches(z.Polarity) || !z.LiveAt(barIndex) {
			continue
		}
		dist := math.Abs(z.Mid() - price)
		if z.EndIndex > bestEnd || (z.EndIndex == bestEnd && dist < bestDist) {
			best = i
			bestEnd = z.EndIndex
			bestDist = dist
		}
	}

	if best < 0 {
		return -1, domain.StructuralZone{}
	}
	return best, a.zones[best]
}
