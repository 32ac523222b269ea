package raster

import (
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// BinarizeRadius is the half-width of the adaptive threshold window.
const BinarizeRadius = 6

// Grayscale replaces R, G and B by the weighted luminance. Alpha is kept.
func Grayscale(img image.Image) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		l := clamp8(luminance(c.R, c.G, c.B))
		return color.NRGBA{R: l, G: l, B: l, A: c.A}
	})
}

// Binarize applies a local adaptive threshold: a pixel turns black when its
// luminance is below k times the mean of the (2r+1)² window around it, the
// window being clipped at the image border.
func Binarize(img image.Image, k float64) *image.NRGBA {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return dst
	}
	lum := lumaPlane(src)

	// integral has a zero row and column so that window sums need no branches.
	iw := w + 1
	integral := make([]int64, iw*(h+1))
	for y := 0; y < h; y++ {
		var rowSum int64
		for x := 0; x < w; x++ {
			rowSum += int64(lum[y*w+x])
			integral[(y+1)*iw+x+1] = integral[y*iw+x+1] + rowSum
		}
	}

	for y := 0; y < h; y++ {
		y0, y1 := max(0, y-BinarizeRadius), min(h-1, y+BinarizeRadius)
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-BinarizeRadius), min(w-1, x+BinarizeRadius)
			sum := integral[(y1+1)*iw+x1+1] - integral[y0*iw+x1+1] - integral[(y1+1)*iw+x0] + integral[y0*iw+x0]
			count := int64((x1 - x0 + 1) * (y1 - y0 + 1))
			mean := float64(sum) / float64(count)

			var v uint8 = 255
			if float64(lum[y*w+x]) < mean*k {
				v = 0
			}
			si := y*src.Stride + x*4
			di := y*dst.Stride + x*4
			dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2], dst.Pix[di+3] = v, v, v, src.Pix[si+3]
		}
	}
	return dst
}

// ContrastGain is the slope F used by AdjustContrast for a given factor.
func ContrastGain(factor float64) float64 {
	return 259 * (factor + 255) / (255 * (259 - factor))
}

// AdjustContrast remaps every colour channel around mid-gray 128.
func AdjustContrast(img image.Image, factor float64) *image.NRGBA {
	gain := ContrastGain(factor)
	var lut [256]uint8
	for v := range lut {
		lut[v] = clamp8(gain*(float64(v)-128) + 128)
	}
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{R: lut[c.R], G: lut[c.G], B: lut[c.B], A: c.A}
	})
}

// Dilate3x3 sets each pixel to the brightest luminance of its in-bounds 3x3
// neighbourhood, growing white areas by one pixel.
func Dilate3x3(img image.Image) *image.NRGBA {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	lum := lumaPlane(src)

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var m uint8
			for yy := max(0, y-1); yy <= min(h-1, y+1); yy++ {
				for xx := max(0, x-1); xx <= min(w-1, x+1); xx++ {
					if v := lum[yy*w+xx]; v > m {
						m = v
					}
				}
			}
			si := y*src.Stride + x*4
			di := y*dst.Stride + x*4
			dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2], dst.Pix[di+3] = m, m, m, src.Pix[si+3]
		}
	}
	return dst
}

// RotatedSize is the canvas that exactly bounds a w×h image rotated by deg.
func RotatedSize(w, h int, deg float64) (int, int) {
	theta := deg * math.Pi / 180
	c, s := math.Abs(math.Cos(theta)), math.Abs(math.Sin(theta))
	nw := int(math.Floor(float64(w)*c + float64(h)*s))
	nh := int(math.Floor(float64(w)*s + float64(h)*c))
	return nw, nh
}

// Rotate turns img clockwise by deg degrees about its centre (screen
// coordinates, y down). Corners not covered by the source are white.
func Rotate(img image.Image, deg float64) *image.NRGBA {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	nw, nh := RotatedSize(w, h, deg)
	dst := image.NewNRGBA(image.Rect(0, 0, nw, nh))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	if w == 0 || h == 0 || nw == 0 || nh == 0 {
		return dst
	}

	theta := deg * math.Pi / 180
	cos, sin := math.Cos(theta), math.Sin(theta)
	cx, cy := float64(w)/2, float64(h)/2
	ncx, ncy := float64(nw)/2, float64(nh)/2
	// source-to-destination affine: translate to origin, rotate, translate to new centre
	s2d := f64.Aff3{
		cos, -sin, ncx - (cos*cx - sin*cy),
		sin, cos, ncy - (sin*cx + cos*cy),
	}
	draw.BiLinear.Transform(dst, s2d, src, src.Bounds(), draw.Over, nil)
	return dst
}

// Upscale resizes to floor(w·scale) × floor(h·scale) with bilinear filtering.
func Upscale(img image.Image, scale float64) *image.NRGBA {
	b := img.Bounds()
	nw := int(math.Floor(float64(b.Dx()) * scale))
	nh := int(math.Floor(float64(b.Dy()) * scale))
	if nw <= 0 || nh <= 0 {
		// imaging.Resize treats a zero side as "keep aspect ratio"
		return image.NewNRGBA(image.Rect(0, 0, max(nw, 0), max(nh, 0)))
	}
	return imaging.Resize(img, nw, nh, imaging.Linear)
}
