package index

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"clausecheck/internal/models"
)

// PG stores segments in Postgres with pgvector. Cosine distance is
// computed by the <=> operator; the seq column makes tie ordering
// stable across queries.
type PG struct {
	pool *pgxpool.Pool
	dim  int
}

func NewPG(ctx context.Context, pool *pgxpool.Pool, dim int) (*PG, error) {
	p := &PG{pool: pool, dim: dim}
	if err := p.ensureSchema(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *PG) ensureSchema(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS segments (
			seq BIGSERIAL,
			segment_id TEXT PRIMARY KEY,
			doc_id TEXT NOT NULL,
			source_type TEXT NOT NULL,
			filename TEXT NOT NULL,
			segment_index INT NOT NULL,
			start_offset INT NOT NULL,
			end_offset INT NOT NULL,
			content TEXT NOT NULL,
			embedding vector(%d) NOT NULL
		)`, p.dim),
		`CREATE INDEX IF NOT EXISTS segments_doc_id_idx ON segments (doc_id)`,
		`CREATE INDEX IF NOT EXISTS segments_source_type_idx ON segments (source_type)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure segments schema: %w", err)
		}
	}
	return nil
}

// Upsert writes the batch inside one transaction so a failure partway
// through leaves nothing behind. Dimensions are checked before the
// transaction opens.
func (p *PG) Upsert(ctx context.Context, entries []Entry) error {
	for _, e := range entries {
		if len(e.Vector) != p.dim {
			return fmt.Errorf("%w: segment %s has dimension %d, index expects %d",
				ErrDimensionMismatch, e.Segment.SegmentID, len(e.Vector), p.dim)
		}
	}
	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin upsert tx: %w", err)
	}
	defer tx.Rollback(ctx)

	const q = `INSERT INTO segments
		(segment_id, doc_id, source_type, filename, segment_index, start_offset, end_offset, content, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::vector)
		ON CONFLICT (segment_id) DO UPDATE SET
			doc_id = EXCLUDED.doc_id,
			source_type = EXCLUDED.source_type,
			filename = EXCLUDED.filename,
			segment_index = EXCLUDED.segment_index,
			start_offset = EXCLUDED.start_offset,
			end_offset = EXCLUDED.end_offset,
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding`
	for _, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		NormalizeL2(vec)
		if _, err := tx.Exec(ctx, q,
			e.Segment.SegmentID, e.Segment.DocID, string(e.SourceType), e.Filename,
			e.Segment.Index, e.Segment.Start, e.Segment.End, e.Segment.Text,
			vectorLiteral(vec),
		); err != nil {
			return fmt.Errorf("upsert segment %s: %w", e.Segment.SegmentID, err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit upsert tx: %w", err)
	}
	return nil
}

func (p *PG) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Result, error) {
	if len(vector) != p.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			ErrDimensionMismatch, len(vector), p.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	query := make([]float32, len(vector))
	copy(query, vector)
	NormalizeL2(query)
	lit := vectorLiteral(query)

	const q = `SELECT segment_id, doc_id, source_type, filename, segment_index,
			start_offset, end_offset, content,
			1 - (embedding <=> $1::vector) AS score
		FROM segments
		WHERE ($2 = '' OR source_type = $2)
		ORDER BY embedding <=> $1::vector, seq
		LIMIT $3`
	rows, err := p.pool.Query(ctx, q, lit, string(filter.SourceType), k)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var (
			e          Entry
			sourceType string
			score      float64
		)
		if err := rows.Scan(
			&e.Segment.SegmentID, &e.Segment.DocID, &sourceType, &e.Filename,
			&e.Segment.Index, &e.Segment.Start, &e.Segment.End, &e.Segment.Text,
			&score,
		); err != nil {
			return nil, fmt.Errorf("scan segment row: %w", err)
		}
		e.SourceType = models.SourceType(sourceType)
		results = append(results, Result{Entry: e, Score: score})
	}
	return results, rows.Err()
}

func (p *PG) Delete(ctx context.Context, docID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM segments WHERE doc_id = $1`, docID); err != nil {
		return fmt.Errorf("delete segments for %s: %w", docID, err)
	}
	return nil
}

func (p *PG) Count(ctx context.Context) (int, error) {
	var n int
	if err := p.pool.QueryRow(ctx, `SELECT COUNT(*) FROM segments`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count segments: %w", err)
	}
	return n, nil
}

// vectorLiteral renders a float32 slice in pgvector's text format.
func vectorLiteral(v []float32) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, x := range v {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(strconv.FormatFloat(float64(x), 'f', -1, 32))
	}
	sb.WriteByte(']')
	return sb.String()
}
