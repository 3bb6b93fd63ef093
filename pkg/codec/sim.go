package codec

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/imageforge/imageforge/pkg/formats"
)

// compressionFactors approximate how each target format shrinks or
// grows a payload. Only used by the simulated engine.
var compressionFactors = map[formats.Format]float64{
	formats.JPEG: 0.35,
	formats.PNG:  0.80,
	formats.WebP: 0.28,
	formats.AVIF: 0.20,
	formats.BMP:  1.60,
	formats.TIFF: 1.10,
	formats.GIF:  0.55,
	formats.ICO:  0.90,
}

// SimEngine is the no-engine fallback path. It preserves the public
// conversion behavior (result shape, staged timing) without touching a
// single pixel, for demonstration when no real engine is present.
//
// Determinism is injectable: a fixed seed and a nil sleep function give
// tests a fully reproducible engine behind the same interface as the
// real one.
type SimEngine struct {
	mu      sync.Mutex
	rng     *rand.Rand
	sleep   func(time.Duration)
	delay   time.Duration
	started time.Time

	// accumulated counters backing PerformanceMetrics
	totalTimeMs     float64
	peakMemoryBytes uint64
	imagesProcessed uint64
	totalDataBytes  uint64
}

// SimOption configures a SimEngine
type SimOption func(*SimEngine)

// WithSeed fixes the random source for reproducible output
func WithSeed(seed int64) SimOption {
	return func(e *SimEngine) {
		e.rng = rand.New(rand.NewSource(seed))
	}
}

// WithDelay sets the artificial per-conversion delay
func WithDelay(d time.Duration) SimOption {
	return func(e *SimEngine) {
		e.delay = d
	}
}

// WithSleep replaces the sleep function; tests pass a no-op
func WithSleep(fn func(time.Duration)) SimOption {
	return func(e *SimEngine) {
		e.sleep = fn
	}
}

// NewSimEngine creates a simulated codec engine
func NewSimEngine(opts ...SimOption) *SimEngine {
	e := &SimEngine{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		sleep:   time.Sleep,
		delay:   30 * time.Millisecond,
		started: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name returns the engine name
func (e *SimEngine) Name() string {
	return "sim"
}

// Convert produces a plausible-shaped result with randomized size and
// dimensions. The payload is a truncated or repeated copy of the input;
// it is not a decodable image.
func (e *SimEngine) Convert(ctx context.Context, data []byte, from, to formats.Format, params CallParams) (*Result, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("sim engine: empty input")
	}
	if !formats.IsSupported(to) {
		return nil, fmt.Errorf("sim engine: unsupported target format %s", to)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	start := time.Now()
	e.sleep(e.delay)
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	factor := compressionFactors[to]
	if formats.IsLossy(to) && params.Quality > 0 {
		// Higher quality, bigger output
		factor *= 0.6 + 0.8*params.Quality
	}
	jitter := 0.9 + 0.2*e.rng.Float64()
	size := int64(float64(len(data)) * factor * jitter)
	if size < 1 {
		size = 1
	}

	out := make([]byte, size)
	for i := range out {
		out[i] = data[i%len(data)]
	}

	width := 320 + e.rng.Intn(1600)
	height := 240 + e.rng.Intn(1200)
	elapsed := time.Since(start)

	e.totalTimeMs += float64(elapsed.Microseconds()) / 1000.0
	e.imagesProcessed++
	e.totalDataBytes += uint64(len(data))
	if mem := uint64(len(data) + len(out)); mem > e.peakMemoryBytes {
		e.peakMemoryBytes = mem
	}

	ratio := 1.0
	if len(data) > 0 {
		ratio = float64(size) / float64(len(data))
	}

	return &Result{
		Data:             out,
		Width:            width,
		Height:           height,
		ConversionTimeMs: float64(elapsed.Microseconds()) / 1000.0,
		ConvertedSize:    size,
		CompressionRatio: ratio,
	}, nil
}

// DetectFormat classifies raw bytes by magic number
func (e *SimEngine) DetectFormat(data []byte) formats.Format {
	return formats.Sniff(data)
}

// PerformanceMetrics returns the accumulated simulated counters
func (e *SimEngine) PerformanceMetrics() (Metrics, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	elapsed := time.Since(e.started).Seconds()
	m := Metrics{
		TotalTimeMs:        e.totalTimeMs,
		PeakMemoryBytes:    e.peakMemoryBytes,
		CPUUsage:           0.0,
		ImagesProcessed:    e.imagesProcessed,
		TotalDataBytes:     e.totalDataBytes,
		ThreadsUsed:        1,
		ParallelEfficiency: 1.0,
		SIMDUtilized:       false,
	}
	if elapsed > 0 {
		m.ImagesPerSecond = float64(e.imagesProcessed) / elapsed
		m.ThroughputMBps = float64(e.totalDataBytes) / 1e6 / elapsed
	}
	return m, nil
}

// SupportedFormats lists every format the simulation accepts
func (e *SimEngine) SupportedFormats() []formats.Format {
	return formats.Supported()
}

// Warmup performs a throwaway conversion to mirror real engine warm-up
func (e *SimEngine) Warmup() error {
	probe := []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}
	_, err := e.Convert(context.Background(), probe, formats.JPEG, formats.PNG, CallParams{})
	return err
}

// Cleanup resets the accumulated counters
func (e *SimEngine) Cleanup() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.totalTimeMs = 0
	e.peakMemoryBytes = 0
	e.imagesProcessed = 0
	e.totalDataBytes = 0
	return nil
}
