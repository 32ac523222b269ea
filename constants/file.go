package constants

import "strings"

// Format is the broad kind of a source document.
type Format string

const (
	PDF   Format = "PDF"
	IMAGE Format = "IMAGE"
	HEIC  Format = "HEIC"
)

// FileTypes holds the formats a document may be stored with.
var FileTypes = []string{string(PDF), string(IMAGE), string(HEIC)}

// AllowedExtensions holds the default allowed file extensions for document ingestion.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
	"gif":  {},
	"webp": {},
	"heic": {},
	"heif": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

func IsHEICExt(ext string) bool {
	ext = NormalizeExt(ext)
	return ext == "heic" || ext == "heif"
}

// MapExtToFormat returns the Format for an extension, or "" when unsupported.
func MapExtToFormat(ext string) Format {
	ext = NormalizeExt(ext)
	if _, ok := AllowedExtensions[ext]; !ok {
		return ""
	}
	switch {
	case ext == "pdf":
		return PDF
	case IsHEICExt(ext):
		return HEIC
	default:
		return IMAGE
	}
}
