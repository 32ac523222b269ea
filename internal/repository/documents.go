package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
)

// DocumentRepository stores processed documents and their extracted records.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.Document) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg string) error
	SaveResult(ctx context.Context, doc *entity.Document) error
	Get(ctx context.Context, id uuid.UUID) (*entity.Document, error)
	List(ctx context.Context, limit int) ([]*entity.Document, error)
	// CountByStatus returns the number of documents per status.
	CountByStatus(ctx context.Context) (map[constants.DocumentStatus]int, error)
}

const defaultListLimit = 50

// documentColumns is the column order every SELECT uses.
const documentColumns = `id, source_path, format, status, error_message, pages, text, record, missing, warnings, created_at, updated_at`

// resultPayload is the JSON encoded part of a document row.
type resultPayload struct {
	pages, record, missing, warnings []byte
}

func encodeResult(doc *entity.Document) (resultPayload, error) {
	rec := doc.Record
	if rec.Heirs == nil {
		rec.Heirs = []entity.HeirShare{}
	}
	if err := rec.Validate(); err != nil {
		return resultPayload{}, fmt.Errorf("%w: %v", common.ErrValidation, err)
	}
	var (
		p   resultPayload
		err error
	)
	if p.pages, err = json.Marshal(nonNil(doc.Pages)); err != nil {
		return p, fmt.Errorf("encode pages: %w", err)
	}
	if p.record, err = json.Marshal(rec); err != nil {
		return p, fmt.Errorf("encode record: %w", err)
	}
	if p.missing, err = json.Marshal(nonNil([]string(doc.Missing))); err != nil {
		return p, fmt.Errorf("encode missing: %w", err)
	}
	if p.warnings, err = json.Marshal(nonNil(doc.Warnings)); err != nil {
		return p, fmt.Errorf("encode warnings: %w", err)
	}
	return p, nil
}

func (p resultPayload) decodeInto(doc *entity.Document) error {
	if err := json.Unmarshal(p.pages, &doc.Pages); err != nil {
		return fmt.Errorf("decode pages: %w", err)
	}
	if err := json.Unmarshal(p.record, &doc.Record); err != nil {
		return fmt.Errorf("decode record: %w", err)
	}
	if err := json.Unmarshal(p.missing, &doc.Missing); err != nil {
		return fmt.Errorf("decode missing: %w", err)
	}
	if err := json.Unmarshal(p.warnings, &doc.Warnings); err != nil {
		return fmt.Errorf("decode warnings: %w", err)
	}
	return nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// prepareCreate fills the id and timestamps of a new document.
func prepareCreate(doc *entity.Document, now time.Time) {
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.Status == "" {
		doc.Status = constants.DocumentStatusQueued
	}
	doc.CreatedAt = now
	doc.UpdatedAt = now
}

func listLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return limit
}
