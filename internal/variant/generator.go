// Package variant enumerates the preprocessing grid tried for every page.
package variant

import (
	"fmt"
	"image"
	"iter"
	"strconv"

	"github.com/joseph-ayodele/liquidation-ocr/internal/raster"
)

// Variant is one rendering of a page handed to the recognizer.
type Variant struct {
	Label string
	Image *image.NRGBA
}

// Grid spans scale × rotation × binarization sensitivity.
type Grid struct {
	Scales            []float64
	Rotations         []float64 // degrees
	Sensitivities     []float64
	DilateSensitivity float64
	ContrastFactor    float64
}

func DefaultGrid() Grid {
	return Grid{
		Scales:            []float64{2.2, 2.8, 3.2},
		Rotations:         []float64{-2, -1, 0, 1, 2},
		Sensitivities:     []float64{0.94, 0.96, 0.985},
		DilateSensitivity: 0.96,
		ContrastFactor:    1.45,
	}
}

// PerPair is the number of renderings produced for one (scale, rotation) pair:
// gray, one binarized per sensitivity, dilated and contrast.
func (g Grid) PerPair() int {
	return len(g.Sensitivities) + 3
}

// Count is the total length of the sequence Generate yields.
func (g Grid) Count() int {
	return len(g.Scales) * len(g.Rotations) * g.PerPair()
}

// Generate returns the lazy variant sequence for src. Nothing is computed
// until the consumer pulls, and stopping the range stops the work; ranging
// again starts over from the first variant.
func Generate(src image.Image, g Grid) iter.Seq[Variant] {
	return func(yield func(Variant) bool) {
		for _, scale := range g.Scales {
			// upscale+gray once per scale, shared by all rotations
			base := raster.Grayscale(raster.Upscale(src, scale))
			for _, rot := range g.Rotations {
				img := base
				if rot != 0 {
					img = raster.Rotate(base, rot)
				}
				suffix := fmt.Sprintf("s%s r%s", num(scale), num(rot))

				if !yield(Variant{Label: "gray " + suffix, Image: img}) {
					return
				}
				for _, k := range g.Sensitivities {
					if !yield(Variant{Label: "bin k" + num(k) + " " + suffix, Image: raster.Binarize(img, k)}) {
						return
					}
				}
				if !yield(Variant{Label: "dilate " + suffix, Image: raster.Dilate3x3(raster.Binarize(img, g.DilateSensitivity))}) {
					return
				}
				if !yield(Variant{Label: "contrast " + suffix, Image: raster.AdjustContrast(img, g.ContrastFactor)}) {
					return
				}
			}
		}
	}
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
