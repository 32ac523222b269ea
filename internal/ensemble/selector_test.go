package ensemble

import (
	"context"
	"image"
	"image/color"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/liquidation-ocr/internal/ocr"
	"github.com/joseph-ayodele/liquidation-ocr/internal/variant"
)

// scripted returns results in order and records the labels it was asked for.
type scripted struct {
	results []ocr.Result
	labels  []string
	encoded int
	onCall  func(n int)
}

func (s *scripted) Recognize(_ context.Context, _ image.Image, label string) ocr.Result {
	n := len(s.labels)
	s.labels = append(s.labels, label)
	if s.onCall != nil {
		s.onCall(n)
	}
	if n < len(s.results) {
		return s.results[n]
	}
	return ocr.Result{}
}

func (s *scripted) RecognizeEncoded(_ context.Context, _ []byte, _ ocr.Format, label string) ocr.Result {
	s.encoded++
	s.labels = append(s.labels, label)
	if len(s.results) > 0 {
		return s.results[0]
	}
	return ocr.Result{}
}

func seqOf(n int) iter.Seq[variant.Variant] {
	return func(yield func(variant.Variant) bool) {
		img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
		for i := 0; i < n; i++ {
			if !yield(variant.Variant{Label: string(rune('a' + i)), Image: img}) {
				return
			}
		}
	}
}

func TestSelectKeepsFirstOfEqualConfidence(t *testing.T) {
	rec := &scripted{results: []ocr.Result{
		{Text: "alpha", Confidence: 40},
		{Text: "beta", Confidence: 70},
		{Text: "gamma", Confidence: 70},
		{Text: "delta", Confidence: 10},
	}}
	s := NewSelector(rec, Config{}, nil, nil)

	out := s.Select(context.Background(), seqOf(4))
	assert.Equal(t, "beta", out.BestText)
	assert.Equal(t, 70.0, out.BestConfidence)
	assert.Equal(t, "b", out.VariantLabel)
	assert.Equal(t, 4, out.Evaluated)
	assert.False(t, out.EarlyStopped)
}

func TestSelectStopsEarly(t *testing.T) {
	rec := &scripted{results: []ocr.Result{
		{Text: "x", Confidence: 50},
		{Text: "y", Confidence: 60},
		{Text: "Coniuge 33%", Confidence: 97},
		{Text: "never", Confidence: 99},
	}}
	s := NewSelector(rec, Config{}, nil, nil)

	out := s.Select(context.Background(), seqOf(10))
	assert.Equal(t, "Coniuge 33%", out.BestText)
	assert.Equal(t, 97.0, out.BestConfidence)
	assert.Equal(t, 3, out.Evaluated)
	assert.True(t, out.EarlyStopped)
	assert.Len(t, rec.labels, 3, "no variant is evaluated after the stop")
}

func TestSelectNoStopWithoutPlausibleText(t *testing.T) {
	rec := &scripted{results: []ocr.Result{
		{Text: "solo lettere", Confidence: 99},
		{Text: "due", Confidence: 20},
	}}
	s := NewSelector(rec, Config{}, nil, nil)

	out := s.Select(context.Background(), seqOf(2))
	assert.Equal(t, 2, out.Evaluated)
	assert.False(t, out.EarlyStopped)
	assert.Equal(t, "solo lettere", out.BestText)
}

func TestSelectNothingPositive(t *testing.T) {
	s := NewSelector(&scripted{}, Config{}, nil, nil)
	out := s.Select(context.Background(), seqOf(5))
	assert.Equal(t, "", out.BestText)
	assert.Zero(t, out.BestConfidence)
	assert.Equal(t, "", out.VariantLabel)
	assert.False(t, out.Recognized())
}

func TestSelectHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	rec := &scripted{results: []ocr.Result{{Text: "1", Confidence: 30}, {Text: "2", Confidence: 80}}}
	rec.onCall = func(n int) {
		if n == 1 {
			cancel()
		}
	}
	s := NewSelector(rec, Config{}, nil, nil)

	out := s.Select(ctx, seqOf(5))
	assert.Equal(t, 1, out.Evaluated)
	assert.Equal(t, 30.0, out.BestConfidence, "the abandoned result is not counted")
	assert.Len(t, rec.labels, 2)
}

func TestRunFallsBackToOriginal(t *testing.T) {
	grid := variant.Grid{Scales: []float64{1}, Rotations: []float64{0}, Sensitivities: []float64{0.96}, DilateSensitivity: 0.96, ContrastFactor: 1.45}
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(1, 1, color.Black)

	calls := 0
	rec := &scripted{}
	rec.onCall = func(n int) {
		calls++
		if n == grid.Count() {
			rec.results = append(make([]ocr.Result, n), ocr.Result{Text: "50%", Confidence: 41})
		}
	}
	s := NewSelector(rec, Config{Grid: grid, FallbackOriginal: true}, nil, nil)

	out := s.Run(context.Background(), img)
	require.Equal(t, grid.Count()+1, calls)
	assert.Equal(t, OriginalLabel, out.VariantLabel)
	assert.Equal(t, "50%", out.BestText)
	assert.Equal(t, grid.Count()+1, out.Evaluated)
	assert.Equal(t, OriginalLabel, rec.labels[len(rec.labels)-1])
}

func TestRunWithoutFallback(t *testing.T) {
	grid := variant.Grid{Scales: []float64{1}, Rotations: []float64{0}, Sensitivities: []float64{0.96}, DilateSensitivity: 0.96, ContrastFactor: 1.45}
	rec := &scripted{}
	s := NewSelector(rec, Config{Grid: grid}, nil, nil)

	out := s.Run(context.Background(), image.NewNRGBA(image.Rect(0, 0, 2, 2)))
	assert.False(t, out.Recognized())
	assert.Len(t, rec.labels, grid.Count())
}

func TestRunEncoded(t *testing.T) {
	rec := &scripted{results: []ocr.Result{{Text: "Figlio 1/2", Confidence: 88}}}
	s := NewSelector(rec, Config{}, nil, nil)

	out := s.RunEncoded(context.Background(), []byte("not an image"))
	assert.Equal(t, 1, rec.encoded)
	assert.Equal(t, OriginalLabel, out.VariantLabel)
	assert.Equal(t, 88.0, out.BestConfidence)
}
