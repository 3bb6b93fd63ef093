// Package metrics exposes Prometheus-compatible metrics for the
// conversion service.
package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	promclient "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"

	"github.com/imageforge/imageforge/pkg/codec"
	"github.com/imageforge/imageforge/pkg/convert"
	"github.com/imageforge/imageforge/pkg/telemetry"
)

// Exporter exports conversion, engine and telemetry metrics at /metrics
type Exporter struct {
	orch      *convert.Orchestrator
	batch     *convert.BatchCoordinator
	loader    *codec.Loader
	collector *telemetry.Collector
	startTime time.Time
}

// NewExporter creates a Prometheus exporter over the live components.
// batch and collector may be nil.
func NewExporter(orch *convert.Orchestrator, batch *convert.BatchCoordinator, loader *codec.Loader, collector *telemetry.Collector) *Exporter {
	return &Exporter{
		orch:      orch,
		batch:     batch,
		loader:    loader,
		collector: collector,
		startTime: time.Now(),
	}
}

// ServeHTTP serves Prometheus-compatible metrics
func (e *Exporter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")

	stats := e.orch.Stats()

	// imageforge_conversions_total{result}
	fmt.Fprintf(w, "# HELP imageforge_conversions_total Total conversions by result\n")
	fmt.Fprintf(w, "# TYPE imageforge_conversions_total counter\n")
	fmt.Fprintf(w, "imageforge_conversions_total{result=\"success\"} %d\n", stats.SuccessfulConversions)
	fmt.Fprintf(w, "imageforge_conversions_total{result=\"failure\"} %d\n", stats.FailedConversions)

	fmt.Fprintf(w, "\n# HELP imageforge_conversion_duration_ms_avg Average conversion time in milliseconds\n")
	fmt.Fprintf(w, "# TYPE imageforge_conversion_duration_ms_avg gauge\n")
	fmt.Fprintf(w, "imageforge_conversion_duration_ms_avg %.2f\n", stats.AverageTimeMs)

	// imageforge_bytes_total{direction}
	fmt.Fprintf(w, "\n# HELP imageforge_bytes_total Total bytes by direction\n")
	fmt.Fprintf(w, "# TYPE imageforge_bytes_total counter\n")
	fmt.Fprintf(w, "imageforge_bytes_total{direction=\"in\"} %d\n", stats.TotalBytesIn)
	fmt.Fprintf(w, "imageforge_bytes_total{direction=\"out\"} %d\n", stats.TotalBytesOut)

	fmt.Fprintf(w, "\n# HELP imageforge_compression_ratio_avg Mean output-to-input size ratio\n")
	fmt.Fprintf(w, "# TYPE imageforge_compression_ratio_avg gauge\n")
	fmt.Fprintf(w, "imageforge_compression_ratio_avg %.4f\n", stats.MeanCompressionRatio)

	fmt.Fprintf(w, "\n# HELP imageforge_conversion_state Current orchestrator state\n")
	fmt.Fprintf(w, "# TYPE imageforge_conversion_state gauge\n")
	for _, s := range []convert.State{
		convert.StateIdle, convert.StateValidating, convert.StateConverting,
		convert.StateFinalizing, convert.StateCompleted, convert.StateFailed,
		convert.StateCancelled,
	} {
		val := 0
		if e.orch.State() == s {
			val = 1
		}
		fmt.Fprintf(w, "imageforge_conversion_state{state=\"%s\"} %d\n", s, val)
	}

	// Engine readiness and counters
	ready := 0
	if e.loader != nil && e.loader.Ready() {
		ready = 1
	}
	fmt.Fprintf(w, "\n# HELP imageforge_engine_ready Whether the codec engine is loaded and ready\n")
	fmt.Fprintf(w, "# TYPE imageforge_engine_ready gauge\n")
	fmt.Fprintf(w, "imageforge_engine_ready %d\n", ready)

	if e.loader != nil {
		if eng, ok := e.loader.Engine(); ok {
			if m, err := eng.PerformanceMetrics(); err == nil {
				fmt.Fprintf(w, "\n# HELP imageforge_engine_images_processed_total Images processed by the engine\n")
				fmt.Fprintf(w, "# TYPE imageforge_engine_images_processed_total counter\n")
				fmt.Fprintf(w, "imageforge_engine_images_processed_total %d\n", m.ImagesProcessed)

				fmt.Fprintf(w, "\n# HELP imageforge_engine_throughput_mbps Engine throughput in megabytes per second\n")
				fmt.Fprintf(w, "# TYPE imageforge_engine_throughput_mbps gauge\n")
				fmt.Fprintf(w, "imageforge_engine_throughput_mbps %.2f\n", m.ThroughputMBps)

				fmt.Fprintf(w, "\n# HELP imageforge_engine_peak_memory_bytes Peak engine memory use\n")
				fmt.Fprintf(w, "# TYPE imageforge_engine_peak_memory_bytes gauge\n")
				fmt.Fprintf(w, "imageforge_engine_peak_memory_bytes %d\n", m.PeakMemoryBytes)
			}
		}
	}

	if e.batch != nil {
		fmt.Fprintf(w, "\n# HELP imageforge_batch_completed_operations Units finished by the most recent batch\n")
		fmt.Fprintf(w, "# TYPE imageforge_batch_completed_operations gauge\n")
		fmt.Fprintf(w, "imageforge_batch_completed_operations %d\n", e.batch.CompletedOperations())
	}

	if e.collector != nil {
		fmt.Fprintf(w, "\n# HELP imageforge_telemetry_snapshots Recorded telemetry snapshots\n")
		fmt.Fprintf(w, "# TYPE imageforge_telemetry_snapshots gauge\n")
		fmt.Fprintf(w, "imageforge_telemetry_snapshots %d\n", len(e.collector.History()))
	}

	fmt.Fprintf(w, "\n# HELP imageforge_uptime_seconds Service uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE imageforge_uptime_seconds gauge\n")
	fmt.Fprintf(w, "imageforge_uptime_seconds %.0f\n", time.Since(e.startTime).Seconds())

	// Append metrics from the Prometheus default registry
	fmt.Fprintf(w, "\n")
	metricFamilies, err := promclient.DefaultGatherer.Gather()
	if err != nil {
		fmt.Fprintf(w, "# Error gathering Prometheus metrics: %v\n", err)
		return
	}

	var buf bytes.Buffer
	encoder := expfmt.NewEncoder(&buf, expfmt.FmtText)
	for _, mf := range metricFamilies {
		if err := encoder.Encode(mf); err != nil {
			fmt.Fprintf(w, "# Error encoding metric %s: %v\n", mf.GetName(), err)
		}
	}
	w.Write(buf.Bytes())
}
