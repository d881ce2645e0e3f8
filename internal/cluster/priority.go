package cluster

import "github.com/studydeck/exam-insights/internal/model"

// Thresholds define the minimum distinct-year frequency for each priority
// tier. Anything below Tier3 lands in tier 4.
type Thresholds struct {
	Tier1 int
	Tier2 int
	Tier3 int
}

// DefaultThresholds returns the observed scheme: a topic appearing in 4+
// distinct exam years is top priority.
func DefaultThresholds() Thresholds {
	return Thresholds{Tier1: 4, Tier2: 3, Tier3: 2}
}

// Tier maps a cluster's cross-year frequency count to a priority tier.
// Pure and total: every frequency maps to a tier, there is no error case.
func Tier(frequency int, t Thresholds) model.PriorityTier {
	switch {
	case frequency >= t.Tier1:
		return model.Tier1
	case frequency >= t.Tier2:
		return model.Tier2
	case frequency >= t.Tier3:
		return model.Tier3
	default:
		return model.Tier4
	}
}
