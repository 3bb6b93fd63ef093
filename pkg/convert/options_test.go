package convert

import (
	"testing"

	"github.com/imageforge/imageforge/pkg/formats"
)

func TestDefaultOptions(t *testing.T) {
	tests := []struct {
		target      formats.Format
		wantQuality float64
		lossless    bool
	}{
		{formats.JPEG, 0.85, false},
		{formats.WebP, 0.80, false},
		{formats.AVIF, 0.75, false},
		{formats.PNG, 0, true},
		{formats.BMP, 0, true},
		{formats.GIF, 0, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.target), func(t *testing.T) {
			opts := DefaultOptions(tt.target)
			if tt.lossless {
				if opts.Quality != nil {
					t.Errorf("lossless target should not default a quality, got %f", *opts.Quality)
				}
				if opts.CompressionLevel == nil || *opts.CompressionLevel != 6 {
					t.Errorf("expected compression level 6, got %+v", opts.CompressionLevel)
				}
			} else {
				if opts.Quality == nil || *opts.Quality != tt.wantQuality {
					t.Errorf("expected quality %f, got %+v", tt.wantQuality, opts.Quality)
				}
			}
			if opts.Progressive == nil || *opts.Progressive {
				t.Error("progressive should default to false")
			}
			if opts.PreserveDimensions == nil || !*opts.PreserveDimensions {
				t.Error("preserve dimensions should default to true")
			}
			if opts.PreserveMetadata == nil || *opts.PreserveMetadata {
				t.Error("preserve metadata should default to false")
			}
		})
	}
}

func TestMergeOptions_CallerWinsKeyByKey(t *testing.T) {
	merged := MergeOptions(formats.JPEG, &Options{
		Quality:     Float(0.5),
		Progressive: Bool(true),
	})

	if *merged.Quality != 0.5 {
		t.Errorf("caller quality should win, got %f", *merged.Quality)
	}
	if !*merged.Progressive {
		t.Error("caller progressive should win")
	}
	// Untouched keys keep their defaults
	if !*merged.PreserveDimensions {
		t.Error("unset key should keep default")
	}
}

func TestMergeOptions_ZeroValueIsSet(t *testing.T) {
	merged := MergeOptions(formats.JPEG, &Options{Quality: Float(0)})
	if *merged.Quality != 0 {
		t.Errorf("explicit zero quality must not fall back to default, got %f", *merged.Quality)
	}
}

func TestMergeOptions_Clamping(t *testing.T) {
	merged := MergeOptions(formats.JPEG, &Options{Quality: Float(1.7)})
	if *merged.Quality != 1.0 {
		t.Errorf("quality should clamp to 1.0, got %f", *merged.Quality)
	}

	merged = MergeOptions(formats.PNG, &Options{CompressionLevel: Int(42)})
	if *merged.CompressionLevel != 9 {
		t.Errorf("compression level should clamp to 9, got %d", *merged.CompressionLevel)
	}

	merged = MergeOptions(formats.PNG, &Options{CompressionLevel: Int(-3)})
	if *merged.CompressionLevel != 0 {
		t.Errorf("compression level should clamp to 0, got %d", *merged.CompressionLevel)
	}
}

func TestMergeOptions_NilCaller(t *testing.T) {
	merged := MergeOptions(formats.WebP, nil)
	if merged.Quality == nil || *merged.Quality != 0.80 {
		t.Errorf("nil caller should yield pure defaults, got %+v", merged.Quality)
	}
}
