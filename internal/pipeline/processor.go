// Package pipeline drives one document from file to stored record: pages in
// order through the ensemble, the joined text through the extractor.
package pipeline

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
	"github.com/joseph-ayodele/liquidation-ocr/internal/metrics"
	"github.com/joseph-ayodele/liquidation-ocr/internal/repository"
	"github.com/joseph-ayodele/liquidation-ocr/internal/source"
)

type PageLoader interface {
	Pages(ctx context.Context, path string) ([]source.Page, []string, error)
}

// PageRecognizer is satisfied by *ensemble.Selector.
type PageRecognizer interface {
	Run(ctx context.Context, img image.Image) entity.EnsembleOutcome
	RunEncoded(ctx context.Context, data []byte) entity.EnsembleOutcome
}

// FieldExtractor is satisfied by *extract.Extractor.
type FieldExtractor interface {
	Extract(text string) (entity.ExtractedRecord, entity.MissingFieldReport)
}

// Result is what the pages of one document produced.
type Result struct {
	Pages   []entity.PageOutcome
	Text    string
	Record  entity.ExtractedRecord
	Missing entity.MissingFieldReport
}

type Processor struct {
	loader    PageLoader
	selector  PageRecognizer
	extractor FieldExtractor
	repo      repository.DocumentRepository // nil = nothing is persisted
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
}

func NewProcessor(
	loader PageLoader,
	selector PageRecognizer,
	extractor FieldExtractor,
	repo repository.DocumentRepository,
	logger *slog.Logger,
	m *metrics.Metrics,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		loader:    loader,
		selector:  selector,
		extractor: extractor,
		repo:      repo,
		logger:    logger,
		metrics:   m,
		tracer:    otel.Tracer("github.com/joseph-ayodele/liquidation-ocr/internal/pipeline"),
	}
}

// ProcessFile creates a document for path and processes it.
func (p *Processor) ProcessFile(ctx context.Context, path string) (*entity.Document, error) {
	format, err := source.Format(path)
	if err != nil {
		return nil, err
	}
	doc := &entity.Document{SourcePath: path, Format: format, Status: constants.DocumentStatusRunning}
	if p.repo != nil {
		if err := p.repo.Create(ctx, doc); err != nil {
			return nil, fmt.Errorf("create document: %w", err)
		}
	} else {
		doc.ID = uuid.New()
		doc.CreatedAt = time.Now().UTC()
	}
	return p.process(ctx, doc)
}

// ProcessDocument processes a document that was already created, e.g. by a
// submit call that queued it.
func (p *Processor) ProcessDocument(ctx context.Context, id uuid.UUID, path string) (*entity.Document, error) {
	format, _ := source.Format(path)
	doc := &entity.Document{ID: id, SourcePath: path, Format: format, Status: constants.DocumentStatusRunning}
	if p.repo != nil {
		if err := p.repo.UpdateStatus(ctx, id, constants.DocumentStatusRunning, ""); err != nil {
			return nil, fmt.Errorf("mark running: %w", err)
		}
	}
	return p.process(ctx, doc)
}

func (p *Processor) process(ctx context.Context, doc *entity.Document) (*entity.Document, error) {
	ctx = common.WithDocumentID(ctx, doc.ID.String())
	ctx, span := p.tracer.Start(ctx, "pipeline.process_document",
		trace.WithAttributes(attribute.String("document_id", doc.ID.String())))
	defer span.End()

	start := time.Now()
	logger := p.logger.With("document_id", doc.ID, "path", doc.SourcePath)

	pages, warnings, err := p.loader.Pages(ctx, doc.SourcePath)
	doc.Warnings = warnings
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load pages")
		return p.fail(ctx, logger, doc, fmt.Errorf("load pages: %w", err))
	}

	res := p.ProcessPages(ctx, pages)
	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "canceled")
		return p.fail(context.WithoutCancel(ctx), logger, doc, fmt.Errorf("process pages: %w", err))
	}

	doc.Pages = res.Pages
	doc.Text = res.Text
	doc.Record = res.Record
	doc.Missing = res.Missing
	doc.Status = constants.DocumentStatusExtracted
	if err := p.save(ctx, doc); err != nil {
		span.RecordError(err)
		return doc, err
	}

	p.metrics.DocumentProcessed(string(doc.Status))
	span.SetAttributes(attribute.Int("pages", len(res.Pages)), attribute.Int("heirs", len(res.Record.Heirs)))
	logger.Info("pipeline.document.ok",
		"pages", len(res.Pages),
		"heirs", len(res.Record.Heirs),
		"missing", len(res.Missing),
		"mean_confidence", doc.MeanConfidence(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return doc, nil
}

// ProcessPages runs the ensemble on every page in order and extracts the
// record from the joined text. A page that could not be decoded is
// recognized once from its raw payload. Cancelling ctx stops before the
// next page; pages already done are kept.
func (p *Processor) ProcessPages(ctx context.Context, pages []source.Page) Result {
	res := Result{Pages: make([]entity.PageOutcome, 0, len(pages))}
	texts := make([]string, 0, len(pages))

	for _, page := range pages {
		if ctx.Err() != nil {
			break
		}
		var out entity.EnsembleOutcome
		if page.Image != nil {
			out = p.selector.Run(ctx, page.Image)
		} else {
			out = p.selector.RunEncoded(ctx, page.Data)
		}
		p.metrics.ObservePage(out.BestConfidence)
		p.logger.Debug("pipeline.page.done",
			"page", page.Index+1,
			"variant_label", out.VariantLabel,
			"confidence", out.BestConfidence,
			"evaluated", out.Evaluated,
		)
		res.Pages = append(res.Pages, entity.PageOutcome{Index: page.Index, EnsembleOutcome: out})
		if t := strings.TrimSpace(out.BestText); t != "" {
			texts = append(texts, t)
		}
	}

	res.Text = strings.Join(texts, "\n")
	res.Record, res.Missing = p.extractor.Extract(res.Text)
	p.metrics.MissingFields(len(res.Missing))
	return res
}

func (p *Processor) fail(ctx context.Context, logger *slog.Logger, doc *entity.Document, cause error) (*entity.Document, error) {
	doc.Status = constants.DocumentStatusFailed
	doc.ErrorMessage = cause.Error()
	p.metrics.DocumentProcessed(string(doc.Status))
	logger.Error("pipeline.document.failed", "error", cause)
	if err := p.save(ctx, doc); err != nil {
		logger.Error("failed to persist failure", "error", err)
	}
	return doc, cause
}

func (p *Processor) save(ctx context.Context, doc *entity.Document) error {
	if p.repo == nil {
		doc.UpdatedAt = time.Now().UTC()
		return nil
	}
	if err := p.repo.SaveResult(ctx, doc); err != nil {
		return fmt.Errorf("save result: %w", err)
	}
	return nil
}
