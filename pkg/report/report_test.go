package report

import (
	"encoding/json"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/imageforge/imageforge/pkg/telemetry"
)

func snaps(label string, times ...float64) []telemetry.Snapshot {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	out := make([]telemetry.Snapshot, len(times))
	for i, ms := range times {
		out[i] = telemetry.Snapshot{
			Label:       label,
			TimeMs:      ms,
			MemoryBytes: 10 << 20,
			CPUPercent:  20,
			CapturedAt:  base.Add(time.Duration(i) * time.Second),
		}
	}
	return out
}

func TestGenerate_EmptyHistory(t *testing.T) {
	r := Generate(nil)

	if r.Summary.ItemsProcessed != 0 {
		t.Errorf("expected 0 items, got %d", r.Summary.ItemsProcessed)
	}
	if r.StabilityScore != 1.0 {
		t.Errorf("empty history should be perfectly stable, got %f", r.StabilityScore)
	}
	if r.Operations == nil || r.Recommendations == nil {
		t.Error("expected empty slices, not nil")
	}
	if math.IsNaN(r.Summary.AverageTimeMs) || math.IsNaN(r.Summary.ItemsPerSecond) {
		t.Error("empty history must not produce NaN")
	}
}

func TestGenerate_Summary(t *testing.T) {
	r := Generate(snaps("convert", 100, 200, 300))

	if r.Summary.ItemsProcessed != 3 {
		t.Errorf("expected 3 items, got %d", r.Summary.ItemsProcessed)
	}
	if r.Summary.TotalTimeMs != 600 {
		t.Errorf("expected 600ms total, got %f", r.Summary.TotalTimeMs)
	}
	if r.Summary.AverageTimeMs != 200 {
		t.Errorf("expected 200ms average, got %f", r.Summary.AverageTimeMs)
	}
	if r.Summary.MinTimeMs != 100 || r.Summary.MaxTimeMs != 300 {
		t.Errorf("expected min 100 / max 300, got %f / %f", r.Summary.MinTimeMs, r.Summary.MaxTimeMs)
	}
	// 3 items in 0.6s
	if math.Abs(r.Summary.ItemsPerSecond-5.0) > 1e-9 {
		t.Errorf("expected 5 items/sec, got %f", r.Summary.ItemsPerSecond)
	}
	if r.Summary.PeakMemoryBytes != 10<<20 {
		t.Errorf("expected peak memory %d, got %d", 10<<20, r.Summary.PeakMemoryBytes)
	}
	if r.Summary.AverageCPUPercent != 20 {
		t.Errorf("expected 20%% CPU, got %f", r.Summary.AverageCPUPercent)
	}
}

func TestGenerate_Breakdown(t *testing.T) {
	history := append(snaps("convert", 100, 300), snaps("auto-collect", 50)...)
	r := Generate(history)

	if len(r.Operations) != 2 {
		t.Fatalf("expected 2 operations, got %d", len(r.Operations))
	}
	// Sorted by label
	if r.Operations[0].Label != "auto-collect" || r.Operations[1].Label != "convert" {
		t.Errorf("breakdown not sorted: %+v", r.Operations)
	}
	conv := r.Operations[1]
	if conv.Count != 2 || conv.MinTimeMs != 100 || conv.MaxTimeMs != 300 || conv.AverageTimeMs != 200 {
		t.Errorf("unexpected convert stats: %+v", conv)
	}
	if conv.AverageMemoryBytes != 10<<20 || conv.PeakMemoryBytes != 10<<20 {
		t.Errorf("unexpected convert memory stats: %+v", conv)
	}
}

func TestGenerate_Trend(t *testing.T) {
	// 12 early at 100ms, then 12 recent at 150ms: the windows compare
	// the first and last ten, both homogeneous
	times := make([]float64, 0, 24)
	for i := 0; i < 12; i++ {
		times = append(times, 100)
	}
	for i := 0; i < 12; i++ {
		times = append(times, 150)
	}
	r := Generate(snaps("convert", times...))

	if r.Trend.EarlyAverageMs != 100 {
		t.Errorf("expected early average 100, got %f", r.Trend.EarlyAverageMs)
	}
	if r.Trend.RecentAverageMs != 150 {
		t.Errorf("expected recent average 150, got %f", r.Trend.RecentAverageMs)
	}
	if math.Abs(r.Trend.Change-0.5) > 1e-9 {
		t.Errorf("expected change 0.5, got %f", r.Trend.Change)
	}
	if !r.Trend.Degrading {
		t.Error("expected degrading trend")
	}
}

func TestGenerate_TrendNeedsTwoSnapshots(t *testing.T) {
	r := Generate(snaps("convert", 100))
	if r.Trend.Change != 0 || r.Trend.Degrading {
		t.Errorf("single snapshot should report no trend: %+v", r.Trend)
	}
}

func TestStability(t *testing.T) {
	// Identical timings: perfectly stable
	r := Generate(snaps("convert", 100, 100, 100))
	if r.StabilityScore != 1.0 {
		t.Errorf("expected 1.0 for identical timings, got %f", r.StabilityScore)
	}

	// Wildly spread timings: clamped at 0
	r = Generate(snaps("convert", 1, 1, 1, 5000))
	if r.StabilityScore != 0 {
		t.Errorf("expected clamp at 0, got %f", r.StabilityScore)
	}

	// Single snapshot: defined as stable
	r = Generate(snaps("convert", 42))
	if r.StabilityScore != 1.0 {
		t.Errorf("expected 1.0 for one snapshot, got %f", r.StabilityScore)
	}
}

func hasRec(recs []Recommendation, typ string) bool {
	for _, r := range recs {
		if r.Type == typ {
			return true
		}
	}
	return false
}

func TestRecommendations(t *testing.T) {
	// Slow and steady: the parallel rule fires, nothing else
	r := Generate(snaps("convert", 2000, 2000, 2000))
	if !hasRec(r.Recommendations, "parallel") {
		t.Error("expected parallel recommendation for slow averages")
	}
	for _, rec := range r.Recommendations {
		if rec.Difficulty == "" {
			t.Errorf("recommendation %q has no difficulty rating", rec.Type)
		}
	}
	if hasRec(r.Recommendations, "cache") {
		t.Error("steady timings should not trigger the cache rule")
	}

	// Degrading trend fires the algorithm rule
	times := make([]float64, 0, 24)
	for i := 0; i < 12; i++ {
		times = append(times, 100)
	}
	for i := 0; i < 12; i++ {
		times = append(times, 200)
	}
	r = Generate(snaps("convert", times...))
	if !hasRec(r.Recommendations, "algorithm") {
		t.Error("expected algorithm recommendation for degrading trend")
	}

	// Unstable timings fire the cache rule
	r = Generate(snaps("convert", 1, 1, 1, 900))
	if !hasRec(r.Recommendations, "cache") {
		t.Error("expected cache recommendation for unstable timings")
	}

	// High memory fires the memory rule
	history := snaps("convert", 100, 100)
	for i := range history {
		history[i].MemoryBytes = 512 << 20
	}
	r = Generate(history)
	if !hasRec(r.Recommendations, "memory") {
		t.Error("expected memory recommendation for heavy usage")
	}

	// Healthy history yields no recommendations
	r = Generate(snaps("convert", 100, 100, 100))
	if len(r.Recommendations) != 0 {
		t.Errorf("expected no recommendations, got %+v", r.Recommendations)
	}
}

func TestRecommendations_SortedByPriority(t *testing.T) {
	// Slow and unstable: both parallel (4) and cache (2) fire
	r := Generate(snaps("convert", 10, 10, 10, 20000))
	if len(r.Recommendations) < 2 {
		t.Fatalf("expected multiple recommendations, got %+v", r.Recommendations)
	}
	for i := 1; i < len(r.Recommendations); i++ {
		if r.Recommendations[i].Priority > r.Recommendations[i-1].Priority {
			t.Errorf("recommendations out of priority order: %+v", r.Recommendations)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	history := snaps("convert", 100, 200, 300)
	a := Generate(history)
	b := Generate(history)
	a.GeneratedAt = b.GeneratedAt

	aj, _ := json.Marshal(a)
	bj, _ := json.Marshal(b)
	if string(aj) != string(bj) {
		t.Error("same history should produce identical reports")
	}
}

func TestExport(t *testing.T) {
	r := Generate(snaps("convert", 100, 200))

	j, err := ExportJSON(r)
	if err != nil {
		t.Fatalf("ExportJSON failed: %v", err)
	}
	if !strings.Contains(string(j), "\"items_processed\": 2") {
		t.Errorf("JSON missing summary: %s", j)
	}

	y, err := ExportYAML(r)
	if err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}
	if !strings.Contains(string(y), "items_processed: 2") {
		t.Errorf("YAML missing summary: %s", y)
	}
}
