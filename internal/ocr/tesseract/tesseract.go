// Package tesseract runs recognition in-process through libtesseract.
package tesseract

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/liquidation-ocr/internal/ocr"
)

type Config struct {
	PSM         int // page segmentation mode; 0 keeps the library default
	TessdataDir string
}

// Engine implements ocr.Engine with a fresh gosseract client per call;
// clients are not safe for concurrent use.
type Engine struct {
	cfg           Config
	clientFactory func() *gosseract.Client
}

func New(cfg Config) *Engine {
	return &Engine{cfg: cfg, clientFactory: gosseract.NewClient}
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize does not observe ctx once libtesseract is running; the invoker
// timeout bounds the wait.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	c := e.clientFactory()
	defer c.Close()

	if e.cfg.TessdataDir != "" {
		if err := c.SetTessdataPrefix(e.cfg.TessdataDir); err != nil {
			return ocr.Result{}, fmt.Errorf("set tessdata: %w", err)
		}
	}
	if err := c.SetLanguage(ocr.TesseractLanguages(in.Languages)...); err != nil {
		return ocr.Result{}, fmt.Errorf("set languages: %w", err)
	}
	if e.cfg.PSM > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.cfg.PSM)); err != nil {
			return ocr.Result{}, fmt.Errorf("set psm: %w", err)
		}
	}
	for k, v := range in.Metadata {
		if err := c.SetVariable(gosseract.SettableVariable(k), v); err != nil {
			return ocr.Result{}, fmt.Errorf("set variable %s: %w", k, err)
		}
	}
	if err := c.SetImageFromBytes(in.Image); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("recognize text: %w", err)
	}
	boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return ocr.Result{Text: strings.TrimSpace(text)}, nil
	}
	return ocr.Result{Text: strings.TrimSpace(text), Confidence: meanConfidence(boxes)}, nil
}

// meanConfidence averages word confidences (0..100), skipping blank words.
func meanConfidence(boxes []gosseract.BoundingBox) float64 {
	var sum float64
	var n int
	for _, b := range boxes {
		if strings.TrimSpace(b.Word) == "" || b.Confidence < 0 {
			continue
		}
		sum += b.Confidence
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
