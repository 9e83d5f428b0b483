package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clausecheck/internal/models"
)

var ErrDocumentNotFound = errors.New("document not found")

// Document statuses as a document moves through ingestion.
const (
	StatusPending = "pending"
	StatusIndexed = "indexed"
	StatusFailed  = "failed"
)

// DocumentRepo tracks source documents and their ingestion state.
type DocumentRepo struct {
	pool *pgxpool.Pool
}

func NewDocumentRepo(ctx context.Context, pool *pgxpool.Pool) (*DocumentRepo, error) {
	r := &DocumentRepo{pool: pool}
	const schema = `CREATE TABLE IF NOT EXISTS documents (
		doc_id TEXT PRIMARY KEY,
		source_type TEXT NOT NULL,
		filename TEXT NOT NULL,
		status TEXT NOT NULL,
		fail_reason TEXT NOT NULL DEFAULT '',
		uploaded_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure documents schema: %w", err)
	}
	return r, nil
}

// Upsert registers a document, resetting it to pending on re-upload.
func (r *DocumentRepo) Upsert(ctx context.Context, doc models.Document) error {
	const q = `INSERT INTO documents (doc_id, source_type, filename, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (doc_id) DO UPDATE SET
			source_type = EXCLUDED.source_type,
			filename = EXCLUDED.filename,
			status = EXCLUDED.status,
			fail_reason = '',
			updated_at = now()`
	status := doc.Status
	if status == "" {
		status = StatusPending
	}
	if _, err := r.pool.Exec(ctx, q, doc.DocID, string(doc.SourceType), doc.Filename, status); err != nil {
		return fmt.Errorf("upsert document %s: %w", doc.DocID, err)
	}
	return nil
}

func (r *DocumentRepo) SetStatus(ctx context.Context, docID, status, failReason string) error {
	const q = `UPDATE documents SET status = $2, fail_reason = $3, updated_at = now() WHERE doc_id = $1`
	tag, err := r.pool.Exec(ctx, q, docID, status, failReason)
	if err != nil {
		return fmt.Errorf("set status for %s: %w", docID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("set status for %s: %w", docID, ErrDocumentNotFound)
	}
	return nil
}

func (r *DocumentRepo) Get(ctx context.Context, docID string) (models.Document, error) {
	const q = `SELECT doc_id, source_type, filename, status, fail_reason, uploaded_at, updated_at
		FROM documents WHERE doc_id = $1`
	var (
		doc        models.Document
		sourceType string
	)
	err := r.pool.QueryRow(ctx, q, docID).Scan(
		&doc.DocID, &sourceType, &doc.Filename, &doc.Status, &doc.FailReason,
		&doc.UploadedAt, &doc.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Document{}, ErrDocumentNotFound
	}
	if err != nil {
		return models.Document{}, fmt.Errorf("get document %s: %w", docID, err)
	}
	doc.SourceType = models.SourceType(sourceType)
	return doc, nil
}

func (r *DocumentRepo) List(ctx context.Context, sourceType models.SourceType) ([]models.Document, error) {
	const q = `SELECT doc_id, source_type, filename, status, fail_reason, uploaded_at, updated_at
		FROM documents
		WHERE ($1 = '' OR source_type = $1)
		ORDER BY uploaded_at DESC`
	rows, err := r.pool.Query(ctx, q, string(sourceType))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	var docs []models.Document
	for rows.Next() {
		var (
			doc models.Document
			st  string
		)
		if err := rows.Scan(&doc.DocID, &st, &doc.Filename, &doc.Status, &doc.FailReason,
			&doc.UploadedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan document row: %w", err)
		}
		doc.SourceType = models.SourceType(st)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}
