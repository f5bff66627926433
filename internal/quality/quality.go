// Package quality maps raw sunset quality percentages to ordered tiers.
//
// Each data source publishes percentages on its own scale, so a threshold
// table is always paired with the source that produced the percent. Mixing a
// table from one source with percentages from another silently misclassifies.
package quality

import (
	"fmt"
	"strings"
)

// Tier is an ordered sunset quality category. Higher is better.
type Tier int

const (
	TierPoor Tier = iota
	TierFair
	TierGood
	TierGreat
	TierExcellent
)

var tierNames = map[Tier]string{
	TierPoor:      "Poor",
	TierFair:      "Fair",
	TierGood:      "Good",
	TierGreat:     "Great",
	TierExcellent: "Excellent",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Tier(%d)", int(t))
}

// ParseTier resolves a tier label case-insensitively.
// Returns an error for labels outside the fixed vocabulary.
func ParseTier(label string) (Tier, error) {
	for t, name := range tierNames {
		if strings.EqualFold(name, label) {
			return t, nil
		}
	}
	return TierPoor, fmt.Errorf("unrecognized quality label %q", label)
}

// --------------------------------------------------------------------------
// Threshold tables
// --------------------------------------------------------------------------

// Table binds a quality vocabulary to the minimum percent for each tier.
// Tables are source-specific and never shared between sources.
type Table struct {
	Source  string
	Tiers   []Tier // ascending order
	Cutoffs map[Tier]float64
}

// LiveTable is the 5-tier vocabulary used by the Sunburst upstream API.
var LiveTable = Table{
	Source: "sunburst",
	Tiers:  []Tier{TierPoor, TierFair, TierGood, TierGreat, TierExcellent},
	Cutoffs: map[Tier]float64{
		TierPoor:      0,
		TierFair:      20,
		TierGood:      40,
		TierGreat:     60,
		TierExcellent: 80,
	},
}

// DemoTable is the 4-tier vocabulary of the deterministic offline generator.
var DemoTable = Table{
	Source: "demo",
	Tiers:  []Tier{TierPoor, TierFair, TierGood, TierGreat},
	Cutoffs: map[Tier]float64{
		TierPoor:  0,
		TierFair:  25,
		TierGood:  50,
		TierGreat: 80,
	},
}

// Classify returns the highest tier whose cutoff the percent satisfies.
// Monotonic non-decreasing in percent.
func (tb Table) Classify(percent float64) Tier {
	result := tb.Tiers[0]
	for _, t := range tb.Tiers {
		if percent >= tb.Cutoffs[t] {
			result = t
		}
	}
	return result
}

// Threshold returns the minimum percent for a tier. Tiers above the table's
// vocabulary clamp to the highest tier so a 5-tier preference still works
// against a 4-tier source.
func (tb Table) Threshold(min Tier) float64 {
	if cutoff, ok := tb.Cutoffs[min]; ok {
		return cutoff
	}
	top := tb.Tiers[len(tb.Tiers)-1]
	return tb.Cutoffs[top]
}

// Meets reports whether a prediction percent satisfies a user's minimum tier.
func (tb Table) Meets(percent float64, min Tier) bool {
	return percent >= tb.Threshold(min)
}
