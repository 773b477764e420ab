package variance

import (
	"math"
	"strconv"
)

// Tier buckets a variance percentage for display styling.
type Tier string

const (
	TierGood     Tier = "good"
	TierWarning  Tier = "warning"
	TierCritical Tier = "critical"
)

// Percent computes the rounded variance percentage of actual against
// estimated effort. A non-positive estimate yields 0.
func Percent(actual, estimated float64) int {
	if estimated <= 0 {
		return 0
	}
	return int(math.Round((actual - estimated) / estimated * 100))
}

// Classify buckets a variance percentage by absolute value: up to 10 is
// good, up to 25 a warning, anything beyond critical. The sign carries no
// meaning for the tier, only for the display prefix.
func Classify(variance int) Tier {
	abs := variance
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs <= 10:
		return TierGood
	case abs <= 25:
		return TierWarning
	default:
		return TierCritical
	}
}

// Badge is the display form of a variance value.
type Badge struct {
	Variance int    `json:"variance"`
	Tier     Tier   `json:"tier"`
	Display  string `json:"display"`
}

// NewBadge builds the badge for a variance percentage. Overruns carry an
// explicit "+" prefix, underruns keep the negative sign.
func NewBadge(variance int) Badge {
	display := strconv.Itoa(variance) + "%"
	if variance > 0 {
		display = "+" + display
	}
	return Badge{
		Variance: variance,
		Tier:     Classify(variance),
		Display:  display,
	}
}
