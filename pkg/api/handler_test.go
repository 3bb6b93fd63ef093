package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"

	"github.com/imageforge/imageforge/pkg/codec"
	"github.com/imageforge/imageforge/pkg/convert"
	"github.com/imageforge/imageforge/pkg/formats"
	"github.com/imageforge/imageforge/pkg/logging"
	"github.com/imageforge/imageforge/pkg/telemetry"
)

var jpegProbe = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()
	loader := codec.NewLoader(func(ctx context.Context) (codec.Engine, error) {
		return codec.NewSimEngine(codec.WithSeed(1), codec.WithSleep(func(time.Duration) {})), nil
	}, logging.Discard())
	if _, err := loader.Load(context.Background()); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	collector := telemetry.NewCollector(logging.Discard())
	orch := convert.NewOrchestrator(loader, collector, logging.Discard())
	batch := convert.NewBatchCoordinator(orch, logging.Discard())

	h := NewHandler(orch, batch, loader, collector, nil, logging.Discard())
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func doJSON(t *testing.T, r *mux.Router, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestConvertEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, "POST", "/api/v1/convert", ConvertRequest{
		Data:         base64.StdEncoding.EncodeToString(jpegProbe),
		Filename:     "probe.jpg",
		TargetFormat: "png",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp ConvertResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Image == nil || resp.Image.Format != formats.PNG {
		t.Errorf("unexpected image: %+v", resp.Image)
	}
	payload, err := base64.StdEncoding.DecodeString(resp.Data)
	if err != nil {
		t.Fatalf("response payload is not base64: %v", err)
	}
	if int64(len(payload)) != resp.Image.ConvertedSize {
		t.Errorf("payload length %d does not match converted size %d", len(payload), resp.Image.ConvertedSize)
	}
}

func TestConvertEndpoint_BadRequests(t *testing.T) {
	r := newTestRouter(t)

	tests := []struct {
		name string
		body interface{}
		want int
	}{
		{"unknown target", ConvertRequest{Data: base64.StdEncoding.EncodeToString(jpegProbe), TargetFormat: "xyz"}, http.StatusBadRequest},
		{"identical formats", ConvertRequest{Data: base64.StdEncoding.EncodeToString(jpegProbe), SourceFormat: "jpeg", TargetFormat: "jpeg"}, http.StatusBadRequest},
		{"bad base64", ConvertRequest{Data: "not-base64!!!", TargetFormat: "png"}, http.StatusBadRequest},
		{"empty payload", ConvertRequest{TargetFormat: "png"}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, r, "POST", "/api/v1/convert", tt.body)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestBatchEndpoint(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, "POST", "/api/v1/batch", BatchRequest{
		Inputs: []ConvertRequest{
			{Data: base64.StdEncoding.EncodeToString(jpegProbe), SourceFormat: "jpeg"},
		},
		Tasks: []BatchTask{
			{TargetFormat: "png"},
			{TargetFormat: "webp"},
		},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp BatchResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Units != 2 || len(resp.Results) != 2 {
		t.Errorf("expected 2 units, got %+v", resp)
	}
}

func TestFormatsEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, "GET", "/api/v1/formats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var infos []formats.FormatInfo
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(infos) != len(formats.Supported()) {
		t.Errorf("expected %d formats, got %d", len(formats.Supported()), len(infos))
	}

	rec = doJSON(t, r, "GET", "/api/v1/formats/png", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for png, got %d", rec.Code)
	}

	rec = doJSON(t, r, "GET", "/api/v1/formats/doc", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown format, got %d", rec.Code)
	}
}

func TestStatsAndReportEndpoints(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, "POST", "/api/v1/convert", ConvertRequest{
		Data:         base64.StdEncoding.EncodeToString(jpegProbe),
		TargetFormat: "png",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("conversion failed: %s", rec.Body.String())
	}

	rec = doJSON(t, r, "GET", "/api/v1/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var stats convert.Stats
	if err := json.NewDecoder(rec.Body).Decode(&stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalConversions != 1 || stats.SuccessfulConversions != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	rec = doJSON(t, r, "GET", "/api/v1/report", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for report, got %d", rec.Code)
	}
}

func TestTelemetryEndpoints(t *testing.T) {
	r := newTestRouter(t)

	// The conversion records a measurement pair
	doJSON(t, r, "POST", "/api/v1/convert", ConvertRequest{
		Data:         base64.StdEncoding.EncodeToString(jpegProbe),
		TargetFormat: "png",
	})

	rec := doJSON(t, r, "GET", "/api/v1/telemetry", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var history []telemetry.Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 1 {
		t.Errorf("expected 1 snapshot, got %d", len(history))
	}

	rec = doJSON(t, r, "DELETE", "/api/v1/telemetry", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}

	rec = doJSON(t, r, "GET", "/api/v1/telemetry", nil)
	history = nil
	if err := json.NewDecoder(rec.Body).Decode(&history); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(history) != 0 {
		t.Errorf("expected empty history after reset, got %d", len(history))
	}
}

func TestStatusAndHealth(t *testing.T) {
	r := newTestRouter(t)

	rec := doJSON(t, r, "GET", "/api/v1/status", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var status StatusResponse
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatalf("decode status: %v", err)
	}
	if !status.EngineReady {
		t.Error("expected engine ready")
	}
	if status.EngineName != "sim" {
		t.Errorf("expected sim engine, got %q", status.EngineName)
	}
	if status.State != string(convert.StateIdle) {
		t.Errorf("expected idle state, got %q", status.State)
	}

	rec = doJSON(t, r, "GET", "/health", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 for health, got %d", rec.Code)
	}
}
