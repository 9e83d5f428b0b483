package index

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is a brute-force cosine index. All vectors are normalized at
// insert time, so similarity is a dot product. Good up to a few hundred
// thousand segments, which covers a regulation corpus comfortably.
type Memory struct {
	mu      sync.RWMutex
	dim     int
	entries []storedEntry
	nextSeq int64
}

type storedEntry struct {
	Entry Entry `json:"entry"`
	Seq   int64 `json:"seq"`
}

func NewMemory(dim int) *Memory {
	return &Memory{dim: dim}
}

func (m *Memory) Dimension() int { return m.dim }

// Upsert validates every vector before touching state. A dimension
// mismatch anywhere in the batch rejects the whole batch.
func (m *Memory) Upsert(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range entries {
		if len(e.Vector) != m.dim {
			return fmt.Errorf("%w: segment %s has dimension %d, index expects %d",
				ErrDimensionMismatch, e.Segment.SegmentID, len(e.Vector), m.dim)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range entries {
		vec := make([]float32, len(e.Vector))
		copy(vec, e.Vector)
		e.Vector = NormalizeL2(vec)
		if i, ok := m.locate(e.Segment.SegmentID); ok {
			seq := m.entries[i].Seq
			m.entries[i] = storedEntry{Entry: e, Seq: seq}
			continue
		}
		m.entries = append(m.entries, storedEntry{Entry: e, Seq: m.nextSeq})
		m.nextSeq++
	}
	return nil
}

// locate finds an entry by segment ID. Caller holds the lock.
func (m *Memory) locate(segmentID string) (int, bool) {
	for i := range m.entries {
		if m.entries[i].Entry.Segment.SegmentID == segmentID {
			return i, true
		}
	}
	return 0, false
}

func (m *Memory) Query(ctx context.Context, vector []float32, k int, filter Filter) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, index expects %d",
			ErrDimensionMismatch, len(vector), m.dim)
	}
	if k <= 0 {
		return nil, nil
	}
	query := make([]float32, len(vector))
	copy(query, vector)
	NormalizeL2(query)

	m.mu.RLock()
	defer m.mu.RUnlock()

	type scored struct {
		res Result
		seq int64
	}
	var hits []scored
	for _, se := range m.entries {
		if filter.SourceType != "" && se.Entry.SourceType != filter.SourceType {
			continue
		}
		hits = append(hits, scored{
			res: Result{Entry: se.Entry, Score: dot(query, se.Entry.Vector)},
			seq: se.Seq,
		})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].res.Score != hits[j].res.Score {
			return hits[i].res.Score > hits[j].res.Score
		}
		return hits[i].seq < hits[j].seq
	})
	if k > len(hits) {
		k = len(hits)
	}
	out := make([]Result, 0, k)
	for _, h := range hits[:k] {
		out = append(out, h.res)
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, docID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.entries[:0]
	for _, se := range m.entries {
		if se.Entry.Segment.DocID != docID {
			kept = append(kept, se)
		}
	}
	m.entries = kept
	return nil
}

func (m *Memory) Count(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}
