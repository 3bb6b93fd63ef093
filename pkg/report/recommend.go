package report

import "fmt"

// Recommendation is one actionable tuning suggestion. ExpectedImpact
// is the estimated fractional improvement; higher Priority means act
// sooner; Difficulty is a rough cost of acting on it.
type Recommendation struct {
	Type           string  `json:"type" yaml:"type"`
	Reason         string  `json:"reason" yaml:"reason"`
	ExpectedImpact float64 `json:"expected_impact" yaml:"expected_impact"`
	Priority       int     `json:"priority" yaml:"priority"`
	Difficulty     string  `json:"difficulty" yaml:"difficulty"`
}

// Rule thresholds
const (
	degradingTrendThreshold = 0.10
	lowStabilityThreshold   = 0.5
	slowAverageMsThreshold  = 1000.0
	highMemoryThreshold     = 256 << 20 // 256 MiB
)

// recommend applies the rule table to a computed report. Rules are
// independent; any subset can fire.
func recommend(r *Report) []Recommendation {
	recs := []Recommendation{}

	if r.Summary.AverageTimeMs > slowAverageMsThreshold {
		recs = append(recs, Recommendation{
			Type: "parallel",
			Reason: fmt.Sprintf("average operation time %.0fms exceeds %.0fms; batching work across workers would hide most of it",
				r.Summary.AverageTimeMs, slowAverageMsThreshold),
			ExpectedImpact: 0.40,
			Priority:       4,
			Difficulty:     "high",
		})
	}
	if r.Trend.Change > degradingTrendThreshold {
		recs = append(recs, Recommendation{
			Type: "algorithm",
			Reason: fmt.Sprintf("recent operations run %.0f%% slower than the earliest ones; the working set is outgrowing the current approach",
				r.Trend.Change*100),
			ExpectedImpact: 0.25,
			Priority:       3,
			Difficulty:     "high",
		})
	}
	if r.Summary.AverageMemoryBytes > highMemoryThreshold {
		recs = append(recs, Recommendation{
			Type: "memory",
			Reason: fmt.Sprintf("average memory use %dMB is above the %dMB comfort line; stream or chunk large payloads",
				r.Summary.AverageMemoryBytes>>20, highMemoryThreshold>>20),
			ExpectedImpact: 0.20,
			Priority:       2,
			Difficulty:     "medium",
		})
	}
	if r.StabilityScore < lowStabilityThreshold {
		recs = append(recs, Recommendation{
			Type: "cache",
			Reason: fmt.Sprintf("timing stability %.2f is below %.2f; caching repeated conversions would flatten the outliers",
				r.StabilityScore, lowStabilityThreshold),
			ExpectedImpact: 0.15,
			Priority:       2,
			Difficulty:     "low",
		})
	}

	// Highest priority first; ties keep rule order
	for i := 1; i < len(recs); i++ {
		for j := i; j > 0 && recs[j].Priority > recs[j-1].Priority; j-- {
			recs[j], recs[j-1] = recs[j-1], recs[j]
		}
	}
	return recs
}
