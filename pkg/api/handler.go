// Package api exposes the conversion service over HTTP
package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/imageforge/imageforge/pkg/codec"
	"github.com/imageforge/imageforge/pkg/convert"
	"github.com/imageforge/imageforge/pkg/formats"
	"github.com/imageforge/imageforge/pkg/logging"
	"github.com/imageforge/imageforge/pkg/report"
	"github.com/imageforge/imageforge/pkg/telemetry"
)

// Handler handles conversion service API requests
type Handler struct {
	orch      *convert.Orchestrator
	batch     *convert.BatchCoordinator
	loader    *codec.Loader
	collector *telemetry.Collector
	exporter  http.Handler
	log       *logging.Logger
	startTime time.Time
}

// NewHandler creates an API handler over the live components. exporter
// may be nil to disable /metrics.
func NewHandler(orch *convert.Orchestrator, batch *convert.BatchCoordinator, loader *codec.Loader, collector *telemetry.Collector, exporter http.Handler, log *logging.Logger) *Handler {
	return &Handler{
		orch:      orch,
		batch:     batch,
		loader:    loader,
		collector: collector,
		exporter:  exporter,
		log:       log.WithField("component", "api"),
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all API routes
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/convert", h.Convert).Methods("POST")
	r.HandleFunc("/api/v1/batch", h.Batch).Methods("POST")
	r.HandleFunc("/api/v1/formats", h.ListFormats).Methods("GET")
	r.HandleFunc("/api/v1/formats/{name}", h.GetFormat).Methods("GET")
	r.HandleFunc("/api/v1/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/api/v1/report", h.GetReport).Methods("GET")
	r.HandleFunc("/api/v1/telemetry", h.GetTelemetry).Methods("GET")
	r.HandleFunc("/api/v1/telemetry", h.ResetTelemetry).Methods("DELETE")
	r.HandleFunc("/api/v1/status", h.Status).Methods("GET")
	r.HandleFunc("/health", h.Health).Methods("GET")
	if h.exporter != nil {
		r.Handle("/metrics", h.exporter).Methods("GET")
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, convert.ErrBusy):
		status = http.StatusConflict
	case convert.KindOf(err) == convert.KindFormat:
		status = http.StatusBadRequest
	case convert.IsCancelled(err):
		status = http.StatusConflict
	}
	writeJSON(w, status, map[string]string{
		"error": err.Error(),
		"kind":  string(convert.KindOf(err)),
	})
}

// ConvertRequest is the POST /api/v1/convert body
type ConvertRequest struct {
	Data         string           `json:"data"` // base64
	Filename     string           `json:"filename,omitempty"`
	SourceFormat string           `json:"source_format,omitempty"`
	TargetFormat string           `json:"target_format"`
	Options      *convert.Options `json:"options,omitempty"`
}

// ConvertResponse wraps a conversion result with its payload
type ConvertResponse struct {
	Image *convert.ConvertedImage `json:"image"`
	Data  string                  `json:"data"` // base64
}

// Convert handles a single synchronous conversion
func (h *Handler) Convert(w http.ResponseWriter, r *http.Request) {
	var req ConvertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		http.Error(w, "Invalid base64 payload", http.StatusBadRequest)
		return
	}
	target := formats.Parse(req.TargetFormat)
	if target == formats.Unknown {
		writeError(w, convert.NewError(convert.KindFormat, "invalid target format"))
		return
	}

	input := convert.ImageInput{Data: data, SourceName: req.Filename}
	if req.SourceFormat != "" {
		source := formats.Parse(req.SourceFormat)
		if source == formats.Unknown {
			writeError(w, convert.NewError(convert.KindFormat, "invalid source format"))
			return
		}
		input.Format = source
	}

	img, err := h.orch.Convert(r.Context(), input, target, req.Options)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ConvertResponse{
		Image: img,
		Data:  base64.StdEncoding.EncodeToString(img.Data),
	})
}

// BatchRequest is the POST /api/v1/batch body
type BatchRequest struct {
	Inputs []ConvertRequest `json:"inputs"`
	Tasks  []BatchTask      `json:"tasks"`
}

// BatchTask names one conversion applied to every input
type BatchTask struct {
	TargetFormat string           `json:"target_format"`
	Options      *convert.Options `json:"options,omitempty"`
}

// BatchResponse carries the all-or-nothing result set
type BatchResponse struct {
	Results []ConvertResponse `json:"results"`
	Units   int               `json:"units"`
}

// Batch handles a synchronous multi-unit conversion run
func (h *Handler) Batch(w http.ResponseWriter, r *http.Request) {
	var req BatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	inputs := make([]convert.ImageInput, 0, len(req.Inputs))
	for _, in := range req.Inputs {
		data, err := base64.StdEncoding.DecodeString(in.Data)
		if err != nil {
			http.Error(w, "Invalid base64 payload", http.StatusBadRequest)
			return
		}
		input := convert.ImageInput{Data: data, SourceName: in.Filename}
		if in.SourceFormat != "" {
			source := formats.Parse(in.SourceFormat)
			if source == formats.Unknown {
				writeError(w, convert.NewError(convert.KindFormat, "invalid source format"))
				return
			}
			input.Format = source
		}
		inputs = append(inputs, input)
	}

	tasks := make([]convert.Task, 0, len(req.Tasks))
	for _, t := range req.Tasks {
		target := formats.Parse(t.TargetFormat)
		if target == formats.Unknown {
			writeError(w, convert.NewError(convert.KindFormat, "invalid target format"))
			return
		}
		tasks = append(tasks, convert.Task{To: target, Options: t.Options})
	}

	images, err := h.batch.Run(r.Context(), inputs, tasks)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := BatchResponse{Units: len(images), Results: make([]ConvertResponse, 0, len(images))}
	for _, img := range images {
		resp.Results = append(resp.Results, ConvertResponse{
			Image: img,
			Data:  base64.StdEncoding.EncodeToString(img.Data),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// ListFormats returns every supported format with its capabilities
func (h *Handler) ListFormats(w http.ResponseWriter, r *http.Request) {
	infos := make([]formats.FormatInfo, 0, len(formats.Supported()))
	for _, f := range formats.Supported() {
		infos = append(infos, formats.Info(f))
	}
	writeJSON(w, http.StatusOK, infos)
}

// GetFormat returns capabilities for one format
func (h *Handler) GetFormat(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	f := formats.Parse(name)
	if f == formats.Unknown {
		http.Error(w, "Unknown format", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, formats.Info(f))
}

// GetStats returns aggregated conversion statistics
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.orch.Stats())
}

// GetReport generates a performance report from telemetry history
func (h *Handler) GetReport(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, report.Generate(h.collector.History()))
}

// GetTelemetry returns the raw snapshot history
func (h *Handler) GetTelemetry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.collector.History())
}

// ResetTelemetry drops all recorded snapshots
func (h *Handler) ResetTelemetry(w http.ResponseWriter, r *http.Request) {
	h.collector.Reset()
	w.WriteHeader(http.StatusNoContent)
}

// StatusResponse describes the running service
type StatusResponse struct {
	State           string  `json:"state"`
	EngineReady     bool    `json:"engine_ready"`
	EngineName      string  `json:"engine_name,omitempty"`
	Sampling        bool    `json:"sampling"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
	HostMemoryTotal uint64  `json:"host_memory_total,omitempty"`
	HostMemoryUsed  uint64  `json:"host_memory_used,omitempty"`
}

// Status reports service, engine and host state
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{
		State:         string(h.orch.State()),
		EngineReady:   h.loader.Ready(),
		Sampling:      h.collector.Sampling(),
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}
	if eng, ok := h.loader.Engine(); ok {
		resp.EngineName = eng.Name()
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		resp.HostMemoryTotal = vm.Total
		resp.HostMemoryUsed = vm.Used
	}
	writeJSON(w, http.StatusOK, resp)
}

// Health is the liveness probe
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}
