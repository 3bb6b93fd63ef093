package formats

// FormatInfo describes the capabilities of an image format
type FormatInfo struct {
	Name                 string   `json:"name"`
	Description          string   `json:"description"`
	Extensions           []string `json:"extensions"`
	MimeType             string   `json:"mime_type"`
	SupportsTransparency bool     `json:"supports_transparency"`
	SupportsAnimation    bool     `json:"supports_animation"`
	IsLossy              bool     `json:"is_lossy"`
}

var infoTable = map[Format]FormatInfo{
	JPEG: {
		Name:        "JPEG",
		Description: "Lossy compression, well suited to photographs",
		Extensions:  []string{"jpg", "jpeg"},
		MimeType:    "image/jpeg",
		IsLossy:     true,
	},
	PNG: {
		Name:                 "PNG",
		Description:          "Lossless compression with alpha channel support",
		Extensions:           []string{"png"},
		MimeType:             "image/png",
		SupportsTransparency: true,
	},
	WebP: {
		Name:                 "WebP",
		Description:          "Modern format with high compression ratios",
		Extensions:           []string{"webp"},
		MimeType:             "image/webp",
		SupportsTransparency: true,
		SupportsAnimation:    true,
		IsLossy:              true,
	},
	AVIF: {
		Name:                 "AVIF",
		Description:          "Next-generation format with the highest compression ratios",
		Extensions:           []string{"avif"},
		MimeType:             "image/avif",
		SupportsTransparency: true,
		SupportsAnimation:    true,
		IsLossy:              true,
	},
	BMP: {
		Name:        "BMP",
		Description: "Uncompressed bitmap with broad compatibility",
		Extensions:  []string{"bmp"},
		MimeType:    "image/bmp",
	},
	TIFF: {
		Name:        "TIFF",
		Description: "Professional format with multi-layer support",
		Extensions:  []string{"tif", "tiff"},
		MimeType:    "image/tiff",
	},
	GIF: {
		Name:                 "GIF",
		Description:          "Palette format with animation support",
		Extensions:           []string{"gif"},
		MimeType:             "image/gif",
		SupportsTransparency: true,
		SupportsAnimation:    true,
	},
	ICO: {
		Name:                 "ICO",
		Description:          "Icon container format",
		Extensions:           []string{"ico"},
		MimeType:             "image/x-icon",
		SupportsTransparency: true,
	},
}

// Info returns the capability record for a format.
// Unknown formats return a zero-valued record with the name "unknown".
func Info(f Format) FormatInfo {
	if info, ok := infoTable[f]; ok {
		return info
	}
	return FormatInfo{Name: string(Unknown)}
}

// IsLossy reports whether the format uses lossy compression
func IsLossy(f Format) bool {
	return Info(f).IsLossy
}
