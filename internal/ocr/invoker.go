package ocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/metrics"
	"github.com/joseph-ayodele/liquidation-ocr/internal/raster"
)

// DefaultTimeout bounds a single recognition call.
const DefaultTimeout = 12 * time.Second

type InvokerConfig struct {
	Languages []string
	Timeout   time.Duration
}

// Invoker calls an Engine for one variant under a wall-clock timeout.
// It never returns an error: failures come back as Result{}.
type Invoker struct {
	engine  Engine
	cfg     InvokerConfig
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func NewInvoker(engine Engine, cfg InvokerConfig, logger *slog.Logger, m *metrics.Metrics) *Invoker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if len(cfg.Languages) == 0 {
		cfg.Languages = []string{"it", "en"}
	}
	return &Invoker{engine: engine, cfg: cfg, logger: logger, metrics: m}
}

// Recognize encodes img as PNG and recognizes it.
func (i *Invoker) Recognize(ctx context.Context, img image.Image, label string) Result {
	data, err := raster.EncodePNG(img)
	if err != nil {
		i.logger.Warn("ocr.invoke.encode_failed", "variant_label", label, "error", err)
		i.metrics.RecognitionFailed(i.engine.Name(), "encode")
		return Result{}
	}
	return i.RecognizeEncoded(ctx, data, FormatPNG, label)
}

// RecognizeEncoded recognizes an already encoded payload, e.g. a page that
// could not be decoded locally.
func (i *Invoker) RecognizeEncoded(ctx context.Context, data []byte, format Format, label string) Result {
	name := i.engine.Name()
	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()

	type outcome struct {
		res Result
		err error
	}
	// buffered so an engine that ignores ctx can still finish and exit
	done := make(chan outcome, 1)
	start := time.Now()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("engine panic: %v", r)}
			}
		}()
		res, err := i.engine.Recognize(ctx, Input{
			ID:        label,
			Image:     data,
			Format:    format,
			Languages: i.cfg.Languages,
		})
		done <- outcome{res: res, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-ctx.Done():
		out = outcome{err: ctx.Err()}
	}
	elapsed := time.Since(start)
	i.metrics.ObserveRecognition(name, elapsed)

	if out.err != nil {
		reason := "error"
		switch {
		case errors.Is(out.err, context.DeadlineExceeded):
			reason = "timeout"
		case errors.Is(out.err, context.Canceled):
			reason = "canceled"
		}
		i.metrics.RecognitionFailed(name, reason)
		i.logger.Warn("ocr.invoke.failed",
			"document_id", common.DocumentIDFromContext(ctx),
			"engine", name,
			"variant_label", label,
			"reason", reason,
			"error", out.err,
			"duration_ms", elapsed.Milliseconds(),
		)
		return Result{}
	}

	res := Result{Text: Normalize(out.res.Text), Confidence: clampConfidence(out.res.Confidence)}
	i.logger.Debug("ocr.invoke.ok",
		"engine", name,
		"variant_label", label,
		"confidence", res.Confidence,
		"chars", len(res.Text),
		"duration_ms", elapsed.Milliseconds(),
	)
	return res
}

func clampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c) || c < 0:
		return 0
	case c > 100:
		return 100
	default:
		return c
	}
}
