package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
)

// Pool is the subset of *pgxpool.Pool the store needs.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgDocumentRepository struct {
	pool   Pool
	logger *slog.Logger
	now    func() time.Time
}

func NewPostgresDocumentRepository(pool Pool, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &pgDocumentRepository{pool: pool, logger: logger, now: time.Now}
}

func (r *pgDocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	prepareCreate(doc, r.now().UTC())
	_, err := r.pool.Exec(ctx,
		`INSERT INTO documents (id, source_path, format, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		doc.ID, doc.SourcePath, string(doc.Format), string(doc.Status), doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to create document", "document_id", doc.ID, "error", err)
		return fmt.Errorf("%w: insert document: %v", common.ErrDatabase, err)
	}
	r.logger.Debug("document created", "document_id", doc.ID, "status", doc.Status)
	return nil
}

func (r *pgDocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE documents SET status = $2, error_message = $3, updated_at = $4 WHERE id = $1`,
		id, string(status), errMsg, r.now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: update status: %v", common.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	return nil
}

func (r *pgDocumentRepository) SaveResult(ctx context.Context, doc *entity.Document) error {
	p, err := encodeResult(doc)
	if err != nil {
		return err
	}
	doc.UpdatedAt = r.now().UTC()
	tag, err := r.pool.Exec(ctx,
		`UPDATE documents
		 SET status = $2, error_message = $3, pages = $4, text = $5, record = $6, missing = $7, warnings = $8, updated_at = $9
		 WHERE id = $1`,
		doc.ID, string(doc.Status), doc.ErrorMessage, p.pages, doc.Text, p.record, p.missing, p.warnings, doc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("failed to save document result", "document_id", doc.ID, "error", err)
		return fmt.Errorf("%w: save result: %v", common.ErrDatabase, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, common.ErrNotFound)
	}
	return nil
}

func (r *pgDocumentRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = $1`, id)
	doc, err := scanPgDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document: %v", common.ErrDatabase, err)
	}
	return doc, nil
}

func (r *pgDocumentRepository) List(ctx context.Context, limit int) ([]*entity.Document, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT $1`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	var out []*entity.Document
	for rows.Next() {
		doc, err := scanPgDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: scan document: %v", common.ErrDatabase, err)
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func (r *pgDocumentRepository) CountByStatus(ctx context.Context) (map[constants.DocumentStatus]int, error) {
	rows, err := r.pool.Query(ctx, `SELECT status, count(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%w: count documents: %v", common.ErrDatabase, err)
	}
	defer rows.Close()

	out := map[constants.DocumentStatus]int{}
	for rows.Next() {
		var status string
		var n int64
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: scan count: %v", common.ErrDatabase, err)
		}
		out[constants.DocumentStatus(status)] = int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: count documents: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func scanPgDocument(row pgx.Row) (*entity.Document, error) {
	var (
		doc            entity.Document
		format, status string
		p              resultPayload
	)
	if err := row.Scan(&doc.ID, &doc.SourcePath, &format, &status, &doc.ErrorMessage,
		&p.pages, &doc.Text, &p.record, &p.missing, &p.warnings, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
		return nil, err
	}
	doc.Format = constants.Format(format)
	doc.Status = constants.DocumentStatus(status)
	if err := p.decodeInto(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
