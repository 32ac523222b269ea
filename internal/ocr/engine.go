// Package ocr wraps external recognition engines behind a single call
// contract and turns every failure into an empty, zero-confidence result.
package ocr

import (
	"context"
	"net/http"
	"strings"
)

// Format identifies the content type of an encoded image.
type Format string

const (
	FormatPNG  Format = "image/png"
	FormatJPEG Format = "image/jpeg"
	FormatTIFF Format = "image/tiff"
)

// DetectFormat sniffs the payload; unknown payloads are reported as PNG,
// which every engine accepts and rejects cleanly when wrong.
func DetectFormat(data []byte) Format {
	switch ct := http.DetectContentType(data); {
	case strings.HasPrefix(ct, "image/jpeg"):
		return FormatJPEG
	case strings.HasPrefix(ct, "image/png"):
		return FormatPNG
	case len(data) > 4 && (string(data[:4]) == "II*\x00" || string(data[:4]) == "MM\x00*"):
		return FormatTIFF
	default:
		return FormatPNG
	}
}

// Input is one encoded image submitted for recognition.
type Input struct {
	// ID is echoed into logs; engines do not interpret it.
	ID     string
	Image  []byte
	Format Format
	// Languages are ISO 639-1 hints such as "it", "en".
	Languages []string
	// Metadata passes engine specific knobs through untouched.
	Metadata map[string]string
}

// Result is the recognized text and the engine confidence in [0,100].
type Result struct {
	Text       string
	Confidence float64
}

// Engine is one image in, one result out.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

var tesseractCodes = map[string]string{
	"it": "ita",
	"en": "eng",
	"de": "deu",
	"fr": "fra",
	"es": "spa",
	"pt": "por",
}

// TesseractLanguages maps ISO 639-1 hints to tesseract traineddata names.
// Unknown codes pass through so "ita" or "osd" can be given directly.
func TesseractLanguages(hints []string) []string {
	out := make([]string, 0, len(hints))
	seen := map[string]struct{}{}
	for _, h := range hints {
		h = strings.ToLower(strings.TrimSpace(h))
		if h == "" {
			continue
		}
		if code, ok := tesseractCodes[h]; ok {
			h = code
		}
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	if len(out) == 0 {
		return []string{"eng"}
	}
	return out
}
