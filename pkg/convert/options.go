package convert

import (
	"github.com/imageforge/imageforge/pkg/formats"
)

// Options holds the recognized conversion option keys. All fields are
// pointers so a merge can tell "caller left this unset" apart from
// "caller chose the zero value".
type Options struct {
	Quality            *float64 `json:"quality,omitempty"`           // [0,1], lossy formats
	CompressionLevel   *int     `json:"compression_level,omitempty"` // [0,9], lossless formats
	Progressive        *bool    `json:"progressive,omitempty"`
	PreserveDimensions *bool    `json:"preserve_dimensions,omitempty"`
	PreserveColorSpace *bool    `json:"preserve_color_space,omitempty"`
	PreserveMetadata   *bool    `json:"preserve_metadata,omitempty"`
}

// Float returns a pointer to v
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v
func Int(v int) *int { return &v }

// Bool returns a pointer to v
func Bool(v bool) *bool { return &v }

// defaultQuality per lossy target format
var defaultQuality = map[formats.Format]float64{
	formats.JPEG: 0.85,
	formats.WebP: 0.80,
	formats.AVIF: 0.75,
}

// DefaultOptions returns the fully-populated defaults for a target
// format. Lossy targets get a quality default, lossless targets a
// compression level default.
func DefaultOptions(target formats.Format) Options {
	opts := Options{
		Progressive:        Bool(false),
		PreserveDimensions: Bool(true),
		PreserveColorSpace: Bool(true),
		PreserveMetadata:   Bool(false),
	}
	if formats.IsLossy(target) {
		q := 0.80
		if v, ok := defaultQuality[target]; ok {
			q = v
		}
		opts.Quality = Float(q)
	} else {
		opts.CompressionLevel = Int(6)
	}
	return opts
}

// MergeOptions overlays caller options onto the target format's
// defaults, key by key: a set caller value wins, an unset key keeps the
// default. Numeric values are clamped to their documented ranges.
func MergeOptions(target formats.Format, caller *Options) Options {
	merged := DefaultOptions(target)
	if caller != nil {
		if caller.Quality != nil {
			merged.Quality = Float(clampFloat(*caller.Quality, 0, 1))
		}
		if caller.CompressionLevel != nil {
			merged.CompressionLevel = Int(clampInt(*caller.CompressionLevel, 0, 9))
		}
		if caller.Progressive != nil {
			merged.Progressive = Bool(*caller.Progressive)
		}
		if caller.PreserveDimensions != nil {
			merged.PreserveDimensions = Bool(*caller.PreserveDimensions)
		}
		if caller.PreserveColorSpace != nil {
			merged.PreserveColorSpace = Bool(*caller.PreserveColorSpace)
		}
		if caller.PreserveMetadata != nil {
			merged.PreserveMetadata = Bool(*caller.PreserveMetadata)
		}
	}
	return merged
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
