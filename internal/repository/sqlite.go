package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/liquidation-ocr/constants"
	"github.com/joseph-ayodele/liquidation-ocr/internal/common"
	"github.com/joseph-ayodele/liquidation-ocr/internal/entity"
)

type sqliteDocumentRepository struct {
	db     *sql.DB
	logger *slog.Logger
	now    func() time.Time
}

// NewSQLiteDocumentRepository stores documents in a database opened with OpenSQLite.
func NewSQLiteDocumentRepository(db *sql.DB, logger *slog.Logger) DocumentRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &sqliteDocumentRepository{db: db, logger: logger, now: time.Now}
}

// fixed width so text order is time order
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func (r *sqliteDocumentRepository) Create(ctx context.Context, doc *entity.Document) error {
	prepareCreate(doc, r.now().UTC())
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO documents (id, source_path, format, status, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		doc.ID.String(), doc.SourcePath, string(doc.Format), string(doc.Status), formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("%w: insert document: %v", common.ErrDatabase, err)
	}
	return nil
}

func (r *sqliteDocumentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status constants.DocumentStatus, errMsg string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, error_message = ?, updated_at = ? WHERE id = ?`,
		string(status), errMsg, formatTime(r.now()), id.String(),
	)
	if err != nil {
		return fmt.Errorf("%w: update status: %v", common.ErrDatabase, err)
	}
	return expectOneRow(res, id)
}

func (r *sqliteDocumentRepository) SaveResult(ctx context.Context, doc *entity.Document) error {
	p, err := encodeResult(doc)
	if err != nil {
		return err
	}
	doc.UpdatedAt = r.now().UTC()
	res, err := r.db.ExecContext(ctx,
		`UPDATE documents
		 SET status = ?, error_message = ?, pages = ?, text = ?, record = ?, missing = ?, warnings = ?, updated_at = ?
		 WHERE id = ?`,
		string(doc.Status), doc.ErrorMessage, string(p.pages), doc.Text, string(p.record), string(p.missing), string(p.warnings),
		formatTime(doc.UpdatedAt), doc.ID.String(),
	)
	if err != nil {
		r.logger.Error("failed to save document result", "document_id", doc.ID, "error", err)
		return fmt.Errorf("%w: save result: %v", common.ErrDatabase, err)
	}
	return expectOneRow(res, doc.ID)
}

func (r *sqliteDocumentRepository) Get(ctx context.Context, id uuid.UUID) (*entity.Document, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id = ?`, id.String())
	doc, err := scanSQLiteDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get document: %v", common.ErrDatabase, err)
	}
	return doc, nil
}

func (r *sqliteDocumentRepository) List(ctx context.Context, limit int) ([]*entity.Document, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+documentColumns+` FROM documents ORDER BY created_at DESC LIMIT ?`, listLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("%w: list documents: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*entity.Document
	for rows.Next() {
		doc, err := scanSQLiteDocument(rows)
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

func (r *sqliteDocumentRepository) CountByStatus(ctx context.Context) (map[constants.DocumentStatus]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, count(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("%w: count documents: %v", common.ErrDatabase, err)
	}
	defer func() { _ = rows.Close() }()

	out := map[constants.DocumentStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("%w: scan count: %v", common.ErrDatabase, err)
		}
		out[constants.DocumentStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: count documents: %v", common.ErrDatabase, err)
	}
	return out, nil
}

func expectOneRow(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: rows affected: %v", common.ErrDatabase, err)
	}
	if n == 0 {
		return fmt.Errorf("document %s: %w", id, common.ErrNotFound)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSQLiteDocument(row scanner) (*entity.Document, error) {
	var (
		doc                                    entity.Document
		id, format, status, created, updated   string
		pages, record, missing, warnings, text string
	)
	if err := row.Scan(&id, &doc.SourcePath, &format, &status, &doc.ErrorMessage,
		&pages, &text, &record, &missing, &warnings, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if doc.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	if doc.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if doc.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	doc.Text = text
	doc.Format = constants.Format(format)
	doc.Status = constants.DocumentStatus(status)
	p := resultPayload{pages: []byte(pages), record: []byte(record), missing: []byte(missing), warnings: []byte(warnings)}
	if err := p.decodeInto(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
