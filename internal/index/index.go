package index

import (
	"context"
	"errors"
	"math"

	"clausecheck/internal/models"
)

// ErrDimensionMismatch is returned when a vector's length does not
// match the index dimension. Upserts that trip it leave the index
// unchanged.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Entry is one stored segment with its embedding and the document
// metadata needed to render citations without a second lookup.
type Entry struct {
	Segment    models.Segment    `json:"segment"`
	SourceType models.SourceType `json:"source_type"`
	Filename   string            `json:"filename"`
	Vector     []float32         `json:"vector"`
}

// Result is a retrieval hit. Score is cosine similarity in [-1, 1].
type Result struct {
	Entry Entry
	Score float64
}

// Filter narrows a query. A zero Filter matches everything.
type Filter struct {
	SourceType models.SourceType
}

// Index is the storage contract shared by the in-memory and Postgres
// backends. Results come back ordered by descending similarity with
// ties broken by insertion order, so the same query against the same
// contents always returns the same ranking.
type Index interface {
	Upsert(ctx context.Context, entries []Entry) error
	Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Result, error)
	Delete(ctx context.Context, docID string) error
	Count(ctx context.Context) (int, error)
}

// NormalizeL2 scales v to unit length in place and returns it. A zero
// vector is returned unchanged.
func NormalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}
	inv := 1.0 / math.Sqrt(sum)
	for i := range v {
		v[i] = float32(float64(v[i]) * inv)
	}
	return v
}

func dot(a, b []float32) float64 {
	var sum float64
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
