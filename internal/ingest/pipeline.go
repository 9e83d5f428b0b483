package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"clausecheck/internal/chunker"
	"clausecheck/internal/index"
	"clausecheck/internal/models"
	"clausecheck/internal/providers"
	"clausecheck/internal/util"
)

// embedBatchSize bounds how many segments go into one embedding call.
const embedBatchSize = 64

// Pipeline turns a source document into indexed segments. One document
// either lands completely or not at all: embeddings are produced for
// every segment before the index is touched, and the document's old
// entries are replaced in the same step.
type Pipeline struct {
	Index    index.Index
	Embedder providers.EmbeddingProvider
	Chunk    chunker.Config
	EmbedDim int
}

type DocumentResult struct {
	DocID        string `json:"doc_id"`
	Filename     string `json:"filename"`
	SegmentCount int    `json:"segment_count"`
}

// IngestFile reads a document from disk and ingests it.
func (p *Pipeline) IngestFile(ctx context.Context, path string, sourceType models.SourceType) (DocumentResult, error) {
	raw, err := ExtractText(path)
	if err != nil {
		return DocumentResult{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("open %s: %w", path, err)
	}
	docID, err := util.SHA256HexFromReader(f)
	f.Close()
	if err != nil {
		return DocumentResult{}, fmt.Errorf("hash %s: %w", path, err)
	}
	return p.IngestText(ctx, docID, filepath.Base(path), raw, sourceType)
}

// IngestText ingests already-extracted text under an explicit document
// ID. Re-ingesting the same ID replaces the previous segments, so the
// operation is idempotent.
func (p *Pipeline) IngestText(ctx context.Context, docID, filename, raw string, sourceType models.SourceType) (DocumentResult, error) {
	normalized := chunker.Normalize(raw)
	if normalized == "" {
		return DocumentResult{}, fmt.Errorf("document %s is empty after normalization", filename)
	}
	segments, err := chunker.Chunk(normalized, p.Chunk)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("chunk %s: %w", filename, err)
	}
	for i := range segments {
		segments[i].DocID = docID
		segments[i].SegmentID = segmentID(docID, i, segments[i].Text)
	}

	vectors, err := p.embedAll(ctx, segments)
	if err != nil {
		return DocumentResult{}, fmt.Errorf("embed %s: %w", filename, err)
	}

	entries := make([]index.Entry, len(segments))
	for i, seg := range segments {
		entries[i] = index.Entry{
			Segment:    seg,
			SourceType: sourceType,
			Filename:   filename,
			Vector:     vectors[i],
		}
	}
	if err := p.Index.Delete(ctx, docID); err != nil {
		return DocumentResult{}, fmt.Errorf("clear previous segments of %s: %w", filename, err)
	}
	if err := p.Index.Upsert(ctx, entries); err != nil {
		return DocumentResult{}, fmt.Errorf("index %s: %w", filename, err)
	}
	return DocumentResult{DocID: docID, Filename: filename, SegmentCount: len(segments)}, nil
}

func (p *Pipeline) embedAll(ctx context.Context, segments []models.Segment) ([][]float32, error) {
	vectors := make([][]float32, 0, len(segments))
	for start := 0; start < len(segments); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(segments) {
			end = len(segments)
		}
		inputs := make([]string, 0, end-start)
		for _, seg := range segments[start:end] {
			inputs = append(inputs, seg.Text)
		}
		batch, _, err := p.Embedder.Embed(ctx, providers.EmbedRequest{
			Operation: "embed_segments",
			Inputs:    inputs,
			Dimension: p.EmbedDim,
		})
		if err != nil {
			return nil, err
		}
		if len(batch) != len(inputs) {
			return nil, fmt.Errorf("embedder returned %d vectors for %d inputs", len(batch), len(inputs))
		}
		vectors = append(vectors, batch...)
	}
	return vectors, nil
}

func segmentID(docID string, idx int, text string) string {
	textHash := util.SHA256Hex([]byte(text))
	return util.SHA256Hex([]byte(docID + ":" + strconv.Itoa(idx) + ":" + textHash))
}
