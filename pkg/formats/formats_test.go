package formats

import (
	"testing"
)

func jpegBytes() []byte {
	return []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46, 0x49, 0x46, 0x00, 0x01}
}

func pngBytes() []byte {
	return []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D}
}

func webpBytes() []byte {
	return []byte{0x52, 0x49, 0x46, 0x46, 0x24, 0x00, 0x00, 0x00, 0x57, 0x45, 0x42, 0x50}
}

func TestDetect_ExtensionPriority(t *testing.T) {
	// Extension wins over byte content when the filename carries one
	tests := []struct {
		name     string
		filename string
		data     []byte
		expected Format
	}{
		{"jpg extension over png bytes", "photo.jpg", pngBytes(), JPEG},
		{"jpeg extension", "photo.JPEG", jpegBytes(), JPEG},
		{"tiff extension", "scan.tif", jpegBytes(), TIFF},
		{"png extension over jpeg bytes", "img.png", jpegBytes(), PNG},
		{"unknown extension falls through to sniffing", "img.dat", webpBytes(), WebP},
		{"no extension falls through to sniffing", "noext", pngBytes(), PNG},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Detect(tt.data, tt.filename)
			if got != tt.expected {
				t.Errorf("Detect(%q) = %s, want %s", tt.filename, got, tt.expected)
			}
		})
	}
}

func TestSniff_MagicNumbers(t *testing.T) {
	tests := []struct {
		name     string
		data     []byte
		expected Format
	}{
		{"jpeg", jpegBytes(), JPEG},
		{"png", pngBytes(), PNG},
		{"webp", webpBytes(), WebP},
		{"bmp", []byte{0x42, 0x4D, 0x36, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x36, 0x00}, BMP},
		{"gif", []byte{0x47, 0x49, 0x46, 0x38, 0x39, 0x61, 0x01, 0x00, 0x01, 0x00, 0x00, 0x00}, GIF},
		{"unrecognized", []byte{0x00, 0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08, 0x09, 0x0A, 0x0B}, Unknown},
		{"riff without webp tag", []byte{0x52, 0x49, 0x46, 0x46, 0x24, 0x00, 0x00, 0x00, 0x41, 0x56, 0x49, 0x20}, Unknown},
		{"too short", []byte{0xFF, 0xD8, 0xFF}, Unknown},
		{"empty", nil, Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sniff(tt.data)
			if got != tt.expected {
				t.Errorf("Sniff() = %s, want %s", got, tt.expected)
			}
		})
	}
}

func TestDetect_NoFilename(t *testing.T) {
	if got := Detect(jpegBytes(), ""); got != JPEG {
		t.Errorf("Detect with no filename = %s, want %s", got, JPEG)
	}
}

func TestValidate(t *testing.T) {
	if !Validate(pngBytes()) {
		t.Error("Validate should accept PNG bytes")
	}
	if Validate([]byte{0xDE, 0xAD, 0xBE, 0xEF}) {
		t.Error("Validate should reject unrecognized bytes")
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		in       string
		expected Format
	}{
		{"jpg", JPEG},
		{"JPEG", JPEG},
		{"png", PNG},
		{"webp", WebP},
		{"tiff", TIFF},
		{"bogus", Unknown},
	}
	for _, tt := range tests {
		if got := Parse(tt.in); got != tt.expected {
			t.Errorf("Parse(%q) = %s, want %s", tt.in, got, tt.expected)
		}
	}
}

func TestInfo(t *testing.T) {
	info := Info(JPEG)
	if !info.IsLossy {
		t.Error("JPEG should be lossy")
	}
	if info.MimeType != "image/jpeg" {
		t.Errorf("JPEG mime type = %s", info.MimeType)
	}

	if IsLossy(PNG) {
		t.Error("PNG should be lossless")
	}

	unknown := Info(Unknown)
	if unknown.Name != "unknown" {
		t.Errorf("Info(Unknown).Name = %s", unknown.Name)
	}
}

func TestInfo_Capabilities(t *testing.T) {
	transparency := map[Format]bool{
		JPEG: false, PNG: true, WebP: true, AVIF: true,
		BMP: false, TIFF: false, GIF: true, ICO: true,
	}
	animation := map[Format]bool{
		JPEG: false, PNG: false, WebP: true, AVIF: true,
		BMP: false, TIFF: false, GIF: true, ICO: false,
	}
	lossy := map[Format]bool{
		JPEG: true, PNG: false, WebP: true, AVIF: true,
		BMP: false, TIFF: false, GIF: false, ICO: false,
	}

	for _, f := range Supported() {
		info := Info(f)
		if info.SupportsTransparency != transparency[f] {
			t.Errorf("%s transparency = %v, want %v", f, info.SupportsTransparency, transparency[f])
		}
		if info.SupportsAnimation != animation[f] {
			t.Errorf("%s animation = %v, want %v", f, info.SupportsAnimation, animation[f])
		}
		if info.IsLossy != lossy[f] {
			t.Errorf("%s lossy = %v, want %v", f, info.IsLossy, lossy[f])
		}
	}
}

func TestSupported(t *testing.T) {
	if !IsSupported(WebP) {
		t.Error("WebP should be supported")
	}
	if IsSupported(Unknown) {
		t.Error("Unknown must not be supported")
	}
}
