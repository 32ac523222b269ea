// Package raster holds the pure image transforms used to build OCR variants.
// Every function returns a freshly allocated *image.NRGBA anchored at (0,0)
// and never writes to its argument.
package raster

import (
	"bytes"
	"fmt"
	"image"
	"io"

	"github.com/disintegration/imaging"
)

// Decode reads an encoded image (PNG, JPEG, GIF, BMP, TIFF) and applies the
// EXIF orientation so phone photos come out upright.
func Decode(r io.Reader) (*image.NRGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return imaging.Clone(img), nil
}

// DecodeBytes is Decode over an in-memory payload.
func DecodeBytes(data []byte) (*image.NRGBA, error) {
	return Decode(bytes.NewReader(data))
}

// EncodePNG encodes img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Clone returns an owned NRGBA copy of any image.
func Clone(img image.Image) *image.NRGBA {
	return imaging.Clone(img)
}

// luminance uses the 0.30/0.59/0.11 weights of the grayscale filter.
func luminance(r, g, b uint8) float64 {
	return 0.30*float64(r) + 0.59*float64(g) + 0.11*float64(b)
}

func clamp8(v float64) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	default:
		return uint8(v + 0.5)
	}
}

// lumaPlane rounds per-pixel luminance into a row-major plane.
func lumaPlane(img *image.NRGBA) []uint8 {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	plane := make([]uint8, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			p := row[x*4 : x*4+4]
			plane[y*w+x] = clamp8(luminance(p[0], p[1], p[2]))
		}
	}
	return plane
}
