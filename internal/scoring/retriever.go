package scoring

import (
	"context"
	"fmt"

	"clausecheck/internal/index"
	"clausecheck/internal/models"
	"clausecheck/internal/providers"
)

// Retriever embeds a clause and pulls the most similar regulation
// segments from the index.
type Retriever struct {
	Index    index.Index
	Embedder providers.EmbeddingProvider
	TopK     int
	EmbedDim int
}

func (r *Retriever) Retrieve(ctx context.Context, clause string) ([]index.Result, error) {
	n, err := r.Index.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count index: %w", err)
	}
	if n == 0 {
		return nil, nil
	}
	vectors, _, err := r.Embedder.Embed(ctx, providers.EmbedRequest{
		Operation: "embed_clause",
		Inputs:    []string{clause},
		Dimension: r.EmbedDim,
	})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one clause", len(vectors))
	}
	k := r.TopK
	if k <= 0 {
		k = 5
	}
	return r.Index.Query(ctx, vectors[0], k, index.Filter{SourceType: models.SourceRegulation})
}
