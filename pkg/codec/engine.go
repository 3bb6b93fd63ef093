// Package codec defines the call contract for the external codec engine
// and manages its lifecycle. The engine is opaque: pixel-level transform
// algorithms live behind the Engine interface and are never reproduced
// here.
package codec

import (
	"context"

	"github.com/imageforge/imageforge/pkg/formats"
)

// Engine is the narrow call contract every codec engine satisfies.
// Implementations are not assumed to be safely re-entrant; callers
// serialize access.
type Engine interface {
	// Name returns the engine name
	Name() string

	// Convert transcodes raw bytes from one format to another
	Convert(ctx context.Context, data []byte, from, to formats.Format, params CallParams) (*Result, error)

	// DetectFormat classifies raw bytes using engine-side detection
	DetectFormat(data []byte) formats.Format

	// PerformanceMetrics returns the engine-reported performance counters
	PerformanceMetrics() (Metrics, error)

	// SupportedFormats lists the formats this engine can read and write
	SupportedFormats() []formats.Format
}

// Warmupper is an optional hook: a throwaway invocation that forces
// lazy compilation paths. Failures are non-fatal.
type Warmupper interface {
	Warmup() error
}

// Initializer is an optional hook run once after instantiation.
// Failures are fatal for the load attempt.
type Initializer interface {
	Init(ctx context.Context) error
}

// Cleaner is an optional teardown hook. Failures are logged, never
// propagated.
type Cleaner interface {
	Cleanup() error
}

// CallParams carries the numeric option fields passed to the engine call
type CallParams struct {
	Quality          float64 // [0,1], lossy targets
	CompressionLevel int     // [0,9], lossless targets
	Progressive      bool
}

// Result is what the engine hands back for one conversion. Size and
// compression figures are authoritative: callers must not recompute
// them, or encoder padding gets double-counted.
type Result struct {
	Data             []byte
	Width            int
	Height           int
	ConversionTimeMs float64
	ConvertedSize    int64
	CompressionRatio float64
}

// Metrics is the engine-reported performance counter record
type Metrics struct {
	TotalTimeMs        float64 `json:"total_time_ms"`
	PeakMemoryBytes    uint64  `json:"peak_memory_bytes"`
	CPUUsage           float64 `json:"cpu_usage"`
	ImagesProcessed    uint64  `json:"images_processed"`
	ImagesPerSecond    float64 `json:"images_per_second"`
	TotalDataBytes     uint64  `json:"total_data_bytes"`
	ThroughputMBps     float64 `json:"throughput_mbps"`
	ThreadsUsed        int     `json:"threads_used"`
	ParallelEfficiency float64 `json:"parallel_efficiency"`
	SIMDUtilized       bool    `json:"simd_utilized"`
}
