// Package telemetry collects performance snapshots: an automatic
// background sampler over the engine's counters and manual start/end
// measurement pairs around arbitrary labeled operations.
package telemetry

import (
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/imageforge/imageforge/pkg/codec"
	"github.com/imageforge/imageforge/pkg/logging"
)

const (
	// autoLabel tags snapshots taken by the background sampler
	autoLabel = "auto-collect"
	// autoCap bounds the automatic ring; oldest entries drop first
	autoCap = 100

	defaultInterval = time.Second
)

// Snapshot is one telemetry data point. The engine counter fields are
// only populated on auto-collected snapshots; measurement pairs carry
// timing and ambient process stats.
type Snapshot struct {
	Label       string    `json:"label"`
	TimeMs      float64   `json:"time_ms"`
	MemoryBytes uint64    `json:"memory_bytes"`
	CPUPercent  float64   `json:"cpu_percent"`
	CapturedAt  time.Time `json:"captured_at"`

	ImagesProcessed    uint64  `json:"images_processed,omitempty"`
	ThroughputMBps     float64 `json:"throughput_mbps,omitempty"`
	ThreadsUsed        int     `json:"threads_used,omitempty"`
	ParallelEfficiency float64 `json:"parallel_efficiency,omitempty"`
	SIMDUtilized       bool    `json:"simd_utilized,omitempty"`
}

// MetricsSource yields engine performance counters. *codec.SimEngine
// and real engines both satisfy it.
type MetricsSource interface {
	PerformanceMetrics() (codec.Metrics, error)
}

// Collector gathers snapshots from two channels: a periodic sampler
// and explicit measurement pairs. Safe for concurrent use.
type Collector struct {
	log *logging.Logger

	mu     sync.Mutex
	auto   []Snapshot
	manual []Snapshot
	open   map[string]time.Time

	stop     chan struct{}
	stopped  chan struct{}
	sampling bool
}

// NewCollector creates an idle collector
func NewCollector(log *logging.Logger) *Collector {
	return &Collector{
		log:  log.WithField("component", "telemetry"),
		open: make(map[string]time.Time),
	}
}

// StartMeasurement opens a labeled measurement. A second start under
// the same label restarts the clock.
func (c *Collector) StartMeasurement(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open[label] = time.Now()
}

// EndMeasurement closes a labeled measurement and records a snapshot.
// Ending a label that was never started is a logged no-op.
func (c *Collector) EndMeasurement(label string) time.Duration {
	c.mu.Lock()
	start, ok := c.open[label]
	if !ok {
		c.mu.Unlock()
		c.log.Warn("End of measurement without a start", map[string]interface{}{
			"label": label,
		})
		return 0
	}
	delete(c.open, label)
	c.mu.Unlock()

	elapsed := time.Since(start)
	snap := Snapshot{
		Label:       label,
		TimeMs:      float64(elapsed.Microseconds()) / 1000.0,
		MemoryBytes: processMemory(),
		CPUPercent:  processCPU(),
		CapturedAt:  time.Now(),
	}

	c.mu.Lock()
	c.manual = append(c.manual, snap)
	c.mu.Unlock()
	return elapsed
}

// Sample takes one snapshot from the engine counters plus process
// stats. Engine read failures are logged and skipped, never fatal.
func (c *Collector) Sample(src MetricsSource) {
	snap := Snapshot{
		Label:       autoLabel,
		MemoryBytes: processMemory(),
		CPUPercent:  processCPU(),
		CapturedAt:  time.Now(),
	}
	if src != nil {
		m, err := src.PerformanceMetrics()
		if err != nil {
			c.log.Warn("Engine metrics read failed", map[string]interface{}{
				"error": err.Error(),
			})
		} else {
			snap.TimeMs = m.TotalTimeMs
			if m.PeakMemoryBytes > snap.MemoryBytes {
				snap.MemoryBytes = m.PeakMemoryBytes
			}
			if m.CPUUsage > 0 {
				snap.CPUPercent = m.CPUUsage
			}
			snap.ImagesProcessed = m.ImagesProcessed
			snap.ThroughputMBps = m.ThroughputMBps
			snap.ThreadsUsed = m.ThreadsUsed
			snap.ParallelEfficiency = m.ParallelEfficiency
			snap.SIMDUtilized = m.SIMDUtilized
		}
	}

	c.mu.Lock()
	c.auto = append(c.auto, snap)
	if len(c.auto) > autoCap {
		c.auto = c.auto[len(c.auto)-autoCap:]
	}
	c.mu.Unlock()
}

// StartSampling launches the background sampler. Starting while one is
// already running is a no-op; interval <= 0 means the default 1s.
func (c *Collector) StartSampling(src MetricsSource, interval time.Duration) {
	c.mu.Lock()
	if c.sampling {
		c.mu.Unlock()
		return
	}
	c.sampling = true
	c.stop = make(chan struct{})
	c.stopped = make(chan struct{})
	stop, stopped := c.stop, c.stopped
	c.mu.Unlock()

	if interval <= 0 {
		interval = defaultInterval
	}
	c.log.Info("Telemetry sampling started", map[string]interface{}{
		"interval": interval.String(),
	})

	go func() {
		defer close(stopped)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				c.Sample(src)
			}
		}
	}()
}

// StopSampling stops the background sampler and waits for it to exit.
// Idempotent.
func (c *Collector) StopSampling() {
	c.mu.Lock()
	if !c.sampling {
		c.mu.Unlock()
		return
	}
	c.sampling = false
	stop, stopped := c.stop, c.stopped
	c.mu.Unlock()

	close(stop)
	<-stopped
	c.log.Info("Telemetry sampling stopped")
}

// Sampling reports whether the background sampler is running
func (c *Collector) Sampling() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sampling
}

// History returns every snapshot, automatic and manual, ordered by
// capture time. The returned slice is a copy.
func (c *Collector) History() []Snapshot {
	c.mu.Lock()
	merged := make([]Snapshot, 0, len(c.auto)+len(c.manual))
	merged = append(merged, c.auto...)
	merged = append(merged, c.manual...)
	c.mu.Unlock()

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CapturedAt.Before(merged[j].CapturedAt)
	})
	return merged
}

// Reset drops all recorded snapshots and open measurements. The
// sampler, if running, keeps running.
func (c *Collector) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.auto = nil
	c.manual = nil
	c.open = make(map[string]time.Time)
}

func processMemory() uint64 {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return ms.HeapAlloc
}

// processCPU reads the instantaneous host CPU load. Reads can fail in
// stripped-down containers; zero is a fine answer there.
func processCPU() float64 {
	percents, err := cpu.Percent(0, false)
	if err != nil || len(percents) == 0 {
		return 0
	}
	p := percents[0]
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
