// Package report turns telemetry history into a performance report:
// aggregate summary, per-operation breakdown, trend, stability and
// tuning recommendations. Generation is pure; the same history always
// yields the same report.
package report

import (
	"math"
	"sort"
	"time"

	"github.com/imageforge/imageforge/pkg/telemetry"
)

// Report is the full performance report
type Report struct {
	GeneratedAt     time.Time        `json:"generated_at" yaml:"generated_at"`
	Summary         Summary          `json:"summary" yaml:"summary"`
	Operations      []OperationStats `json:"operations" yaml:"operations"`
	Trend           Trend            `json:"trend" yaml:"trend"`
	StabilityScore  float64          `json:"stability_score" yaml:"stability_score"`
	Recommendations []Recommendation `json:"recommendations" yaml:"recommendations"`
}

// Summary aggregates the whole history
type Summary struct {
	ItemsProcessed     int     `json:"items_processed" yaml:"items_processed"`
	TotalTimeMs        float64 `json:"total_time_ms" yaml:"total_time_ms"`
	AverageTimeMs      float64 `json:"average_time_ms" yaml:"average_time_ms"`
	MinTimeMs          float64 `json:"min_time_ms" yaml:"min_time_ms"`
	MaxTimeMs          float64 `json:"max_time_ms" yaml:"max_time_ms"`
	ItemsPerSecond     float64 `json:"items_per_second" yaml:"items_per_second"`
	AverageMemoryBytes uint64  `json:"average_memory_bytes" yaml:"average_memory_bytes"`
	PeakMemoryBytes    uint64  `json:"peak_memory_bytes" yaml:"peak_memory_bytes"`
	AverageCPUPercent  float64 `json:"average_cpu_percent" yaml:"average_cpu_percent"`
}

// OperationStats breaks the history down by snapshot label
type OperationStats struct {
	Label              string  `json:"label" yaml:"label"`
	Count              int     `json:"count" yaml:"count"`
	TotalTimeMs        float64 `json:"total_time_ms" yaml:"total_time_ms"`
	AverageTimeMs      float64 `json:"average_time_ms" yaml:"average_time_ms"`
	MinTimeMs          float64 `json:"min_time_ms" yaml:"min_time_ms"`
	MaxTimeMs          float64 `json:"max_time_ms" yaml:"max_time_ms"`
	AverageMemoryBytes uint64  `json:"average_memory_bytes" yaml:"average_memory_bytes"`
	PeakMemoryBytes    uint64  `json:"peak_memory_bytes" yaml:"peak_memory_bytes"`
}

// Trend compares the earliest snapshots against the most recent ones.
// Change is relative: 0.10 means the recent window runs 10% slower.
type Trend struct {
	EarlyAverageMs  float64 `json:"early_average_ms" yaml:"early_average_ms"`
	RecentAverageMs float64 `json:"recent_average_ms" yaml:"recent_average_ms"`
	Change          float64 `json:"change" yaml:"change"`
	Degrading       bool    `json:"degrading" yaml:"degrading"`
}

// trendWindow is how many snapshots each end of the comparison uses
const trendWindow = 10

// Generate builds a report from telemetry history. An empty history
// yields a structurally complete report with zero values throughout.
func Generate(history []telemetry.Snapshot) *Report {
	r := &Report{
		GeneratedAt:     time.Now(),
		Operations:      []OperationStats{},
		Recommendations: []Recommendation{},
		StabilityScore:  stability(history),
	}
	if len(history) == 0 {
		r.StabilityScore = 1.0
		return r
	}

	r.Summary = summarize(history)
	r.Operations = breakdown(history)
	r.Trend = trend(history)
	r.Recommendations = recommend(r)
	return r
}

func summarize(history []telemetry.Snapshot) Summary {
	s := Summary{
		ItemsProcessed: len(history),
		MinTimeMs:      history[0].TimeMs,
	}
	var memSum uint64
	for _, snap := range history {
		s.TotalTimeMs += snap.TimeMs
		if snap.TimeMs < s.MinTimeMs {
			s.MinTimeMs = snap.TimeMs
		}
		if snap.TimeMs > s.MaxTimeMs {
			s.MaxTimeMs = snap.TimeMs
		}
		memSum += snap.MemoryBytes
		if snap.MemoryBytes > s.PeakMemoryBytes {
			s.PeakMemoryBytes = snap.MemoryBytes
		}
		s.AverageCPUPercent += snap.CPUPercent
	}
	n := float64(len(history))
	s.AverageTimeMs = s.TotalTimeMs / n
	s.AverageMemoryBytes = memSum / uint64(len(history))
	s.AverageCPUPercent /= n
	if s.TotalTimeMs > 0 {
		s.ItemsPerSecond = n / (s.TotalTimeMs / 1000.0)
	}
	return s
}

func breakdown(history []telemetry.Snapshot) []OperationStats {
	byLabel := make(map[string]*OperationStats)
	memSums := make(map[string]uint64)
	for _, snap := range history {
		op, ok := byLabel[snap.Label]
		if !ok {
			op = &OperationStats{
				Label:     snap.Label,
				MinTimeMs: snap.TimeMs,
				MaxTimeMs: snap.TimeMs,
			}
			byLabel[snap.Label] = op
		}
		op.Count++
		op.TotalTimeMs += snap.TimeMs
		if snap.TimeMs < op.MinTimeMs {
			op.MinTimeMs = snap.TimeMs
		}
		if snap.TimeMs > op.MaxTimeMs {
			op.MaxTimeMs = snap.TimeMs
		}
		memSums[snap.Label] += snap.MemoryBytes
		if snap.MemoryBytes > op.PeakMemoryBytes {
			op.PeakMemoryBytes = snap.MemoryBytes
		}
	}

	ops := make([]OperationStats, 0, len(byLabel))
	for _, op := range byLabel {
		op.AverageTimeMs = op.TotalTimeMs / float64(op.Count)
		op.AverageMemoryBytes = memSums[op.Label] / uint64(op.Count)
		ops = append(ops, *op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Label < ops[j].Label })
	return ops
}

// trend needs at least two snapshots; with fewer it reports no change
func trend(history []telemetry.Snapshot) Trend {
	if len(history) < 2 {
		return Trend{}
	}
	early := history
	if len(early) > trendWindow {
		early = early[:trendWindow]
	}
	recent := history
	if len(recent) > trendWindow {
		recent = recent[len(recent)-trendWindow:]
	}

	t := Trend{
		EarlyAverageMs:  meanTime(early),
		RecentAverageMs: meanTime(recent),
	}
	if t.EarlyAverageMs > 0 {
		t.Change = (t.RecentAverageMs - t.EarlyAverageMs) / t.EarlyAverageMs
	}
	t.Degrading = t.Change > 0
	return t
}

func meanTime(snaps []telemetry.Snapshot) float64 {
	if len(snaps) == 0 {
		return 0
	}
	var sum float64
	for _, s := range snaps {
		sum += s.TimeMs
	}
	return sum / float64(len(snaps))
}

// stability maps timing variance onto [0,1]: 1 is perfectly steady,
// 0 is a standard deviation at or beyond the mean.
func stability(history []telemetry.Snapshot) float64 {
	if len(history) <= 1 {
		return 1.0
	}
	mean := meanTime(history)
	if mean <= 0 {
		return 1.0
	}
	var variance float64
	for _, s := range history {
		d := s.TimeMs - mean
		variance += d * d
	}
	variance /= float64(len(history))
	score := 1.0 - math.Sqrt(variance)/mean
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}
