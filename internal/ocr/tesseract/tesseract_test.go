package tesseract

import (
	"context"
	"testing"

	"github.com/otiai10/gosseract/v2"
	"github.com/stretchr/testify/assert"

	"github.com/joseph-ayodele/liquidation-ocr/internal/ocr"
)

func TestMeanConfidence(t *testing.T) {
	boxes := []gosseract.BoundingBox{
		{Word: "Coniuge", Confidence: 90},
		{Word: " ", Confidence: 10},
		{Word: "50%", Confidence: 96},
		{Word: "x", Confidence: -1},
	}
	assert.InDelta(t, 93.0, meanConfidence(boxes), 1e-9)
	assert.Zero(t, meanConfidence(nil))
}

func TestEngine_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(Config{}).Recognize(ctx, ocr.Input{Image: []byte("x")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, "tesseract", New(Config{}).Name())
}
