package raster

import (
	"bytes"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFilled(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func newGradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 7), G: uint8(y * 11), B: uint8((x + y) * 3), A: 255})
		}
	}
	return img
}

func TestGrayscale(t *testing.T) {
	img := newFilled(2, 2, color.NRGBA{R: 200, G: 100, B: 50, A: 128})
	got := Grayscale(img)

	want := uint8(math.Round(0.30*200 + 0.59*100 + 0.11*50))
	c := got.NRGBAAt(1, 1)
	assert.Equal(t, color.NRGBA{R: want, G: want, B: want, A: 128}, c)
}

func TestGrayscale_Idempotent(t *testing.T) {
	once := Grayscale(newGradient(23, 17))
	twice := Grayscale(once)
	assert.Equal(t, once.Pix, twice.Pix)
}

func TestTransforms_DoNotMutateInput(t *testing.T) {
	src := newGradient(16, 12)
	orig := append([]uint8(nil), src.Pix...)

	_ = Grayscale(src)
	_ = Binarize(src, 0.96)
	_ = AdjustContrast(src, 1.45)
	_ = Dilate3x3(src)
	_ = Rotate(src, 2)
	_ = Upscale(src, 2.2)

	assert.Equal(t, orig, src.Pix)
}

func TestBinarize(t *testing.T) {
	t.Run("uniform image stays white", func(t *testing.T) {
		got := Binarize(newFilled(20, 20, color.NRGBA{R: 90, G: 90, B: 90, A: 255}), 0.96)
		for i := 0; i < len(got.Pix); i += 4 {
			require.Equal(t, uint8(255), got.Pix[i])
		}
	})

	t.Run("dark stroke on light paper turns black", func(t *testing.T) {
		img := newFilled(21, 21, color.NRGBA{R: 230, G: 230, B: 230, A: 255})
		for y := 0; y < 21; y++ {
			img.SetNRGBA(10, y, color.NRGBA{R: 40, G: 40, B: 40, A: 255})
		}
		got := Binarize(img, 0.96)
		assert.Equal(t, uint8(0), got.NRGBAAt(10, 10).R)
		assert.Equal(t, uint8(255), got.NRGBAAt(3, 10).R)
		assert.Equal(t, uint8(255), got.NRGBAAt(10, 10).A)
	})

	t.Run("matches brute force clipped window", func(t *testing.T) {
		img := newGradient(19, 15)
		k := 0.985
		got := Binarize(img, k)
		lum := lumaPlane(img)
		w, h := 19, 15
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				var sum, n int
				for yy := y - BinarizeRadius; yy <= y+BinarizeRadius; yy++ {
					for xx := x - BinarizeRadius; xx <= x+BinarizeRadius; xx++ {
						if xx < 0 || yy < 0 || xx >= w || yy >= h {
							continue
						}
						sum += int(lum[yy*w+xx])
						n++
					}
				}
				want := uint8(255)
				if float64(lum[y*w+x]) < float64(sum)/float64(n)*k {
					want = 0
				}
				require.Equal(t, want, got.NRGBAAt(x, y).R, "pixel %d,%d", x, y)
			}
		}
	})

	t.Run("lower sensitivity admits less black", func(t *testing.T) {
		img := newGradient(30, 30)
		count := func(m *image.NRGBA) int {
			n := 0
			for i := 0; i < len(m.Pix); i += 4 {
				if m.Pix[i] == 0 {
					n++
				}
			}
			return n
		}
		assert.LessOrEqual(t, count(Binarize(img, 0.94)), count(Binarize(img, 0.985)))
	})
}

func TestAdjustContrast(t *testing.T) {
	gain := ContrastGain(1.45)
	assert.InDelta(t, 259*(1.45+255)/(255*(259-1.45)), gain, 1e-12)

	img := newFilled(1, 1, color.NRGBA{R: 0, G: 128, B: 200, A: 77})
	got := AdjustContrast(img, 1.45).NRGBAAt(0, 0)

	expect := func(v float64) uint8 {
		return uint8(math.Round(math.Max(0, math.Min(255, gain*(v-128)+128))))
	}
	assert.Equal(t, expect(0), got.R)
	assert.Equal(t, uint8(128), got.G)
	assert.Equal(t, expect(200), got.B)
	assert.Equal(t, uint8(77), got.A)

	bright := AdjustContrast(newFilled(1, 1, color.NRGBA{R: 250, G: 5, B: 250, A: 255}), 200).NRGBAAt(0, 0)
	assert.Equal(t, uint8(255), bright.R, "clamped high")
	assert.Equal(t, uint8(0), bright.G, "clamped low")
}

func TestDilate3x3(t *testing.T) {
	img := newFilled(5, 5, color.NRGBA{A: 255})
	img.SetNRGBA(0, 0, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	img.SetNRGBA(3, 3, color.NRGBA{R: 100, G: 100, B: 100, A: 255})

	got := Dilate3x3(img)

	assert.Equal(t, uint8(255), got.NRGBAAt(1, 1).R)
	assert.Equal(t, uint8(0), got.NRGBAAt(2, 0).R)
	assert.Equal(t, uint8(100), got.NRGBAAt(4, 4).R, "corner uses in-bounds neighbours only")
	assert.Equal(t, uint8(100), got.NRGBAAt(2, 2).R)
	assert.Equal(t, uint8(0), got.NRGBAAt(0, 4).R)
}

func TestUpscale_DimensionLaw(t *testing.T) {
	sizes := [][2]int{{1, 1}, {7, 3}, {40, 25}, {13, 31}}
	scales := []float64{0.5, 1, 2.2, 2.8, 3.2, 0.01}
	for _, sz := range sizes {
		for _, s := range scales {
			got := Upscale(newGradient(sz[0], sz[1]), s)
			wantW := int(math.Floor(float64(sz[0]) * s))
			wantH := int(math.Floor(float64(sz[1]) * s))
			assert.Equal(t, wantW, got.Bounds().Dx(), "w=%d s=%v", sz[0], s)
			assert.Equal(t, wantH, got.Bounds().Dy(), "h=%d s=%v", sz[1], s)
		}
	}
}

func TestRotate_BoundingBox(t *testing.T) {
	img := newGradient(40, 25)
	for _, deg := range []float64{-2, -1, 0, 1, 2, 30, 45, 90, 180, -135} {
		got := Rotate(img, deg)
		theta := deg * math.Pi / 180
		wantW := int(math.Floor(40*math.Abs(math.Cos(theta)) + 25*math.Abs(math.Sin(theta))))
		wantH := int(math.Floor(40*math.Abs(math.Sin(theta)) + 25*math.Abs(math.Cos(theta))))
		assert.Equal(t, wantW, got.Bounds().Dx(), "deg=%v", deg)
		assert.Equal(t, wantH, got.Bounds().Dy(), "deg=%v", deg)
	}
}

func TestRotate_CornersAreBackground(t *testing.T) {
	got := Rotate(newFilled(40, 40, color.NRGBA{A: 255}), 45)
	assert.Equal(t, color.NRGBA{R: 255, G: 255, B: 255, A: 255}, got.NRGBAAt(0, 0))
	c := got.NRGBAAt(got.Bounds().Dx()/2, got.Bounds().Dy()/2)
	assert.Equal(t, uint8(0), c.R, "centre keeps source content")
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	src := newGradient(9, 4)
	data, err := EncodePNG(src)
	require.NoError(t, err)

	got, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, src.Pix, got.Pix)

	_, err = DecodeBytes([]byte("not an image"))
	assert.Error(t, err)
}
