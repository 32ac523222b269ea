// Package ensemble runs the variant grid through a recognizer and keeps the
// most confident reading, stopping as soon as one is good enough.
package ensemble

import (
	"context"
	"image"
	"iter"
	"log/slog"
	"regexp"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
	"github.com/joseph-ayodele/liquidation-ocr/internal/metrics"
	"github.com/joseph-ayodele/liquidation-ocr/internal/ocr"
	"github.com/joseph-ayodele/liquidation-ocr/internal/variant"
)

// OriginalLabel marks a result read from the unprocessed page.
const OriginalLabel = "original"

// DefaultStopConfidence is the early-stop threshold.
const DefaultStopConfidence = 96.0

// plausible matches text that carries a share: a digit or a percent sign.
var plausible = regexp.MustCompile(`[0-9%]`)

// Recognizer is satisfied by *ocr.Invoker.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, label string) ocr.Result
	RecognizeEncoded(ctx context.Context, data []byte, format ocr.Format, label string) ocr.Result
}

type Config struct {
	Grid           variant.Grid
	StopConfidence float64
	// FallbackOriginal recognizes the untouched page when no variant yields
	// a positive confidence.
	FallbackOriginal bool
}

type Selector struct {
	rec     Recognizer
	cfg     Config
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

func NewSelector(rec Recognizer, cfg Config, logger *slog.Logger, m *metrics.Metrics) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.StopConfidence <= 0 {
		cfg.StopConfidence = DefaultStopConfidence
	}
	if len(cfg.Grid.Scales) == 0 {
		cfg.Grid = variant.DefaultGrid()
	}
	return &Selector{
		rec:     rec,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
		tracer:  otel.Tracer("github.com/joseph-ayodele/liquidation-ocr/internal/ensemble"),
	}
}

// Run generates the variant grid for img and selects the best reading.
func (s *Selector) Run(ctx context.Context, img image.Image) entity.EnsembleOutcome {
	ctx, span := s.tracer.Start(ctx, "ensemble.run")
	defer span.End()

	out := s.Select(ctx, variant.Generate(img, s.cfg.Grid))
	if !out.Recognized() && s.cfg.FallbackOriginal && ctx.Err() == nil {
		res := s.rec.Recognize(ctx, img, OriginalLabel)
		s.metrics.VariantEvaluated()
		out.Evaluated++
		if res.Confidence > 0 {
			out.BestText, out.BestConfidence, out.VariantLabel = res.Text, res.Confidence, OriginalLabel
		}
		s.logger.Info("ensemble.fallback_original", "confidence", res.Confidence)
	}
	span.SetAttributes(
		attribute.String("variant_label", out.VariantLabel),
		attribute.Float64("confidence", out.BestConfidence),
		attribute.Int("evaluated", out.Evaluated),
		attribute.Bool("early_stopped", out.EarlyStopped),
	)
	return out
}

// RunEncoded recognizes a payload that could not be decoded locally, once,
// as its own only candidate.
func (s *Selector) RunEncoded(ctx context.Context, data []byte) entity.EnsembleOutcome {
	res := s.rec.RecognizeEncoded(ctx, data, ocr.DetectFormat(data), OriginalLabel)
	s.metrics.VariantEvaluated()
	out := entity.EnsembleOutcome{Evaluated: 1}
	if res.Confidence > 0 {
		out.BestText, out.BestConfidence, out.VariantLabel = res.Text, res.Confidence, OriginalLabel
	}
	return out
}

// Select evaluates seq in order. The best result only changes on a strictly
// higher confidence; the loop ends early once the best reaches the stop
// threshold and looks like it contains a share.
func (s *Selector) Select(ctx context.Context, seq iter.Seq[variant.Variant]) entity.EnsembleOutcome {
	var out entity.EnsembleOutcome
	for v := range seq {
		if ctx.Err() != nil {
			s.logger.Debug("ensemble.canceled", "evaluated", out.Evaluated)
			break
		}
		res := s.rec.Recognize(ctx, v.Image, v.Label)
		if ctx.Err() != nil {
			// abandoned work is not counted
			break
		}
		out.Evaluated++
		s.metrics.VariantEvaluated()

		if res.Confidence > out.BestConfidence {
			out.BestText, out.BestConfidence, out.VariantLabel = res.Text, res.Confidence, v.Label
		}
		if out.BestConfidence >= s.cfg.StopConfidence && plausible.MatchString(out.BestText) {
			out.EarlyStopped = true
			s.metrics.EarlyStop()
			break
		}
	}
	s.logger.Debug("ensemble.selected",
		"variant_label", out.VariantLabel,
		"confidence", out.BestConfidence,
		"evaluated", out.Evaluated,
		"early_stopped", out.EarlyStopped,
	)
	return out
}
