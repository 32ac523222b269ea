package server

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/async"
	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
	"github.com/joseph-ayodele/liquidation-ocr/internal/export"
	"github.com/joseph-ayodele/liquidation-ocr/internal/pipeline"
	"github.com/joseph-ayodele/liquidation-ocr/internal/raster"
	"github.com/joseph-ayodele/liquidation-ocr/internal/repository"
	"github.com/joseph-ayodele/liquidation-ocr/internal/source"
)

// ContentTypeHeader carries the media type of an ExportRecord payload.
const ContentTypeHeader = "x-content-type"

// maxPathLength caps submitted paths (PATH_MAX on Linux).
const maxPathLength = 4096

// Exporter is satisfied by *export.Service.
type Exporter interface {
	Render(rec entity.ExtractedRecord, format string) ([]byte, string, error)
}

// LiquidationService implements LiquidationServer. Repo and queue may be nil
// when persistence is disabled; the document methods then fail with
// FailedPrecondition.
type LiquidationService struct {
	extractor  pipeline.FieldExtractor
	recognizer pipeline.PageRecognizer
	exporter   Exporter
	repo       repository.DocumentRepository
	queue      async.Queue
	logger     *slog.Logger
}

var _ LiquidationServer = (*LiquidationService)(nil)

func NewLiquidationService(
	extractor pipeline.FieldExtractor,
	recognizer pipeline.PageRecognizer,
	exporter Exporter,
	repo repository.DocumentRepository,
	queue async.Queue,
	logger *slog.Logger,
) *LiquidationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiquidationService{
		extractor:  extractor,
		recognizer: recognizer,
		exporter:   exporter,
		repo:       repo,
		queue:      queue,
		logger:     logger,
	}
}

// ExtractFields runs the field extractor over already recognized text.
func (s *LiquidationService) ExtractFields(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	text := stringField(req, "text")
	if err := common.ValidateAndReturnError(common.NewValidator().Field("text", text, common.Required)); err != nil {
		return nil, err
	}

	rec, missing := s.extractor.Extract(text)
	recValue, err := toValue(rec)
	if err != nil {
		return nil, common.InternalErrorf("encode record: %v", err)
	}
	missingValue, err := toValue(nonNilStrings(missing))
	if err != nil {
		return nil, common.InternalErrorf("encode missing: %v", err)
	}
	s.logger.Info("extract.ok", "request_id", common.RequestIDFromContext(ctx), "heirs", len(rec.Heirs), "missing", len(missing))
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"record":  recValue,
		"missing": missingValue,
	}}, nil
}

// RecognizePage runs the variant ensemble over one encoded page image.
func (s *LiquidationService) RecognizePage(ctx context.Context, req *wrapperspb.BytesValue) (*structpb.Struct, error) {
	data := req.GetValue()
	if len(data) == 0 {
		return nil, common.InvalidArgumentError("image bytes are required")
	}

	var out entity.EnsembleOutcome
	if img, err := raster.DecodeBytes(data); err == nil {
		out = s.recognizer.Run(ctx, img)
	} else {
		s.logger.Warn("recognize.undecodable", "request_id", common.RequestIDFromContext(ctx), "bytes", len(data), "error", err)
		out = s.recognizer.RunEncoded(ctx, data)
	}
	if err := ctx.Err(); err != nil {
		return nil, status.FromContextError(err).Err()
	}

	return structpb.NewStruct(map[string]any{
		"text":          out.BestText,
		"confidence":    out.BestConfidence,
		"variant_label": out.VariantLabel,
		"evaluated":     out.Evaluated,
		"early_stopped": out.EarlyStopped,
	})
}

// SubmitDocument stores a QUEUED document for path and hands it to the queue.
func (s *LiquidationService) SubmitDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.persistenceEnabled(); err != nil {
		return nil, err
	}
	path := strings.TrimSpace(stringField(req, "path"))
	if err := common.ValidateAndReturnError(common.NewValidator().Field("path", path, common.Required, common.MaxLength(maxPathLength))); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err != nil {
		return nil, common.InvalidArgumentErrorf("path %q: %v", path, err)
	}

	doc, err := s.Submit(ctx, path)
	if err != nil {
		return nil, err
	}
	return structpb.NewStruct(map[string]any{
		"document_id": doc.ID.String(),
		"status":      string(doc.Status),
	})
}

// SubmitDirectory scans root and submits every supported file found.
func (s *LiquidationService) SubmitDirectory(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.persistenceEnabled(); err != nil {
		return nil, err
	}
	root := strings.TrimSpace(stringField(req, "root_path"))
	if err := common.ValidateAndReturnError(common.NewValidator().Field("root_path", root, common.Required, common.MaxLength(maxPathLength))); err != nil {
		return nil, err
	}
	skipHidden := boolField(req, "skip_hidden", true)

	paths, stats, err := source.ScanDirectory(root, nil, skipHidden)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("scan directory: %v", err)
	}
	s.logger.Info("submit.directory.scanned", "root", root, "scanned", stats.Scanned, "matched", stats.Matched, "failed", stats.Failed)

	ids := make([]any, 0, len(paths))
	failed := stats.Failed
	for _, p := range paths {
		doc, err := s.Submit(ctx, p)
		if err != nil {
			if ctx.Err() != nil {
				return nil, status.FromContextError(ctx.Err()).Err()
			}
			failed++
			continue
		}
		ids = append(ids, doc.ID.String())
	}

	return structpb.NewStruct(map[string]any{
		"scanned":      stats.Scanned,
		"matched":      stats.Matched,
		"submitted":    len(ids),
		"failed":       failed,
		"document_ids": ids,
	})
}

// Submit stores a QUEUED document for path and enqueues it. Errors are gRPC
// status errors.
func (s *LiquidationService) Submit(ctx context.Context, path string) (*entity.Document, error) {
	if err := s.persistenceEnabled(); err != nil {
		return nil, err
	}
	format, err := source.Format(path)
	if err != nil {
		return nil, common.ToStatus(err)
	}
	doc := &entity.Document{SourcePath: path, Format: format, Status: constants.DocumentStatusQueued}
	if err := s.repo.Create(ctx, doc); err != nil {
		s.logger.Error("submit.create_failed", "path", path, "error", err)
		return nil, common.ToStatus(err)
	}

	job := async.Job{DocumentID: doc.ID, Path: path, SubmittedAt: time.Now(), TraceID: common.RequestIDFromContext(ctx)}
	if err := s.queue.Enqueue(ctx, job); err != nil {
		s.logger.Error("submit.enqueue_failed", "document_id", doc.ID, "error", err)
		_ = s.repo.UpdateStatus(context.WithoutCancel(ctx), doc.ID, constants.DocumentStatusFailed, err.Error())
		if errors.Is(err, async.ErrQueueClosed) {
			return nil, status.Error(codes.Unavailable, err.Error())
		}
		return nil, status.FromContextError(err).Err()
	}
	return doc, nil
}

// GetDocument returns a stored document with its pages and record.
func (s *LiquidationService) GetDocument(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	if err := s.persistenceEnabled(); err != nil {
		return nil, err
	}
	raw := strings.TrimSpace(stringField(req, "document_id"))
	if err := common.ValidateAndReturnError(common.NewValidator().Field("document_id", raw, common.Required, common.UUID)); err != nil {
		return nil, err
	}

	doc, err := s.repo.Get(ctx, uuid.MustParse(raw))
	if err != nil {
		return nil, common.ToStatus(err)
	}
	docValue, err := toValue(doc)
	if err != nil {
		return nil, common.InternalErrorf("encode document: %v", err)
	}
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"document":        docValue,
		"mean_confidence": structpb.NewNumberValue(doc.MeanConfidence()),
	}}, nil
}

// ExportRecord renders a (possibly hand edited) record. The content type is
// returned in the x-content-type response header.
func (s *LiquidationService) ExportRecord(ctx context.Context, req *structpb.Struct) (*wrapperspb.BytesValue, error) {
	format := strings.ToLower(strings.TrimSpace(stringField(req, "format")))
	if format == "" {
		format = export.FormatXLSX
	}
	v := common.NewValidator().Field("format", format, common.OneOf(export.FormatCSV, export.FormatXLSX, export.FormatText))
	if err := common.ValidateAndReturnError(v); err != nil {
		return nil, err
	}

	rec, err := recordFromValue(req.GetFields()["record"])
	if err != nil {
		return nil, common.ToStatus(err)
	}
	data, contentType, err := s.exporter.Render(rec, format)
	if err != nil {
		s.logger.Error("export.failed", "format", format, "error", err)
		return nil, common.ToStatus(err)
	}
	if err := grpc.SetHeader(ctx, metadata.Pairs(ContentTypeHeader, contentType)); err != nil {
		s.logger.Debug("export.header_not_set", "error", err)
	}
	return wrapperspb.Bytes(data), nil
}

func (s *LiquidationService) persistenceEnabled() error {
	if s.repo == nil || s.queue == nil {
		return status.Error(codes.FailedPrecondition, "document storage is disabled")
	}
	return nil
}

func nonNilStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
