// Package formats identifies image formats from filenames and raw bytes.
//
// Detection is two-tier: a filename extension lookup first, then
// magic-number sniffing over a leading byte window. Neither tier ever
// guesses; inputs that match nothing come back as Unknown and policy
// around that sentinel belongs to the caller.
package formats

import (
	"path/filepath"
	"strings"
)

// Format identifies a known image format
type Format string

const (
	JPEG    Format = "jpeg"
	PNG     Format = "png"
	WebP    Format = "webp"
	AVIF    Format = "avif"
	BMP     Format = "bmp"
	TIFF    Format = "tiff"
	GIF     Format = "gif"
	ICO     Format = "ico"
	Unknown Format = "unknown"
)

// extensionTable maps lower-cased filename extensions to formats
var extensionTable = map[string]Format{
	"jpg":  JPEG,
	"jpeg": JPEG,
	"png":  PNG,
	"webp": WebP,
	"avif": AVIF,
	"bmp":  BMP,
	"tif":  TIFF,
	"tiff": TIFF,
	"gif":  GIF,
	"ico":  ICO,
}

// sniffWindow is the minimum byte window magic rules inspect
const sniffWindow = 12

type magicRule struct {
	format Format
	match  func(b []byte) bool
}

// magicRules are tested in order; the first match wins
var magicRules = []magicRule{
	{JPEG, func(b []byte) bool { return b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF }},
	{PNG, func(b []byte) bool { return b[0] == 0x89 && b[1] == 0x50 && b[2] == 0x4E && b[3] == 0x47 }},
	{WebP, func(b []byte) bool {
		return b[0] == 0x52 && b[1] == 0x49 && b[2] == 0x46 && b[3] == 0x46 &&
			b[8] == 0x57 && b[9] == 0x45 && b[10] == 0x42 && b[11] == 0x50
	}},
	{BMP, func(b []byte) bool { return b[0] == 0x42 && b[1] == 0x4D }},
	{GIF, func(b []byte) bool { return b[0] == 0x47 && b[1] == 0x49 && b[2] == 0x46 }},
}

// Detect classifies raw bytes into a format identifier.
// A recognized filename extension takes priority over byte content;
// content sniffing only runs when the extension is absent or unknown.
func Detect(data []byte, filename string) Format {
	if filename != "" {
		ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
		if f, ok := extensionTable[ext]; ok {
			return f
		}
	}
	return Sniff(data)
}

// Sniff classifies raw bytes by magic number alone
func Sniff(data []byte) Format {
	if len(data) < sniffWindow {
		return Unknown
	}
	for _, rule := range magicRules {
		if rule.match(data) {
			return rule.format
		}
	}
	return Unknown
}

// Validate reports whether the bytes look like a supported image
func Validate(data []byte) bool {
	return Sniff(data) != Unknown
}

// Parse converts a format name string into a Format
func Parse(name string) Format {
	switch strings.ToLower(name) {
	case "jpg", "jpeg":
		return JPEG
	case "png":
		return PNG
	case "webp":
		return WebP
	case "avif":
		return AVIF
	case "bmp":
		return BMP
	case "tif", "tiff":
		return TIFF
	case "gif":
		return GIF
	case "ico":
		return ICO
	default:
		return Unknown
	}
}

// Supported returns all formats the engine contract can name
func Supported() []Format {
	return []Format{JPEG, PNG, WebP, AVIF, BMP, TIFF, GIF, ICO}
}

// IsSupported reports whether f is in the supported set
func IsSupported(f Format) bool {
	for _, s := range Supported() {
		if s == f {
			return true
		}
	}
	return false
}

func (f Format) String() string {
	return string(f)
}
