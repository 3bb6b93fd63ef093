package convert

import (
	"time"

	"github.com/imageforge/imageforge/pkg/formats"
)

// ImageInput is one image handed to the orchestrator. Immutable once
// created; the caller owns it until conversion starts.
type ImageInput struct {
	Data       []byte
	Format     formats.Format // declared source format; detected when empty
	SourceName string
}

// Task pairs a target format with conversion options. Tasks are pure
// value objects and are never mutated after creation.
type Task struct {
	From    formats.Format
	To      formats.Format
	Options *Options
}

// ConvertedImage is the result record for one successful conversion.
// Created exactly once per task, immutable thereafter.
type ConvertedImage struct {
	ID               string         `json:"id"`
	Data             []byte         `json:"-"`
	Format           formats.Format `json:"format"`
	Width            int            `json:"width"`
	Height           int            `json:"height"`
	ConversionTimeMs float64        `json:"conversion_time_ms"`
	OriginalSize     int64          `json:"original_size"`
	ConvertedSize    int64          `json:"converted_size"`
	CompressionRatio float64        `json:"compression_ratio"`
	AppliedOptions   Options        `json:"applied_options"`
	ConvertedAt      time.Time      `json:"converted_at"`
}
