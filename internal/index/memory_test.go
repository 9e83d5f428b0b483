package index

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clausecheck/internal/models"
)

func entry(segID, docID string, st models.SourceType, vec []float32) Entry {
	return Entry{
		Segment: models.Segment{
			SegmentID: segID,
			DocID:     docID,
			Text:      "segment " + segID,
		},
		SourceType: st,
		Filename:   docID + ".txt",
		Vector:     vec,
	}
}

func TestMemoryQueryOrdering(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("s1", "d1", models.SourceRegulation, []float32{1, 0, 0}),
		entry("s2", "d1", models.SourceRegulation, []float32{0, 1, 0}),
		entry("s3", "d1", models.SourceRegulation, []float32{0.9, 0.1, 0}),
	}))

	results, err := m.Query(ctx, []float32{1, 0, 0}, 3, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "s1", results[0].Entry.Segment.SegmentID)
	assert.Equal(t, "s3", results[1].Entry.Segment.SegmentID)
	assert.Equal(t, "s2", results[2].Entry.Segment.SegmentID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestMemoryQueryKPrefixConsistent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("s1", "d1", models.SourceRegulation, []float32{1, 0, 0}),
		entry("s2", "d1", models.SourceRegulation, []float32{0.8, 0.2, 0}),
		entry("s3", "d1", models.SourceRegulation, []float32{0.5, 0.5, 0}),
		entry("s4", "d1", models.SourceRegulation, []float32{0, 0, 1}),
	}))

	big, err := m.Query(ctx, []float32{1, 0, 0}, 4, Filter{})
	require.NoError(t, err)
	small, err := m.Query(ctx, []float32{1, 0, 0}, 2, Filter{})
	require.NoError(t, err)
	require.Len(t, small, 2)
	for i := range small {
		assert.Equal(t, big[i].Entry.Segment.SegmentID, small[i].Entry.Segment.SegmentID)
	}
}

func TestMemoryQueryTiesByInsertionOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("later-alphabetically", "d1", models.SourceRegulation, []float32{1, 0}),
		entry("earlier-alphabetically", "d1", models.SourceRegulation, []float32{1, 0}),
	}))

	results, err := m.Query(ctx, []float32{1, 0}, 2, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "later-alphabetically", results[0].Entry.Segment.SegmentID)
}

func TestMemoryQueryKLargerThanIndex(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("s1", "d1", models.SourceRegulation, []float32{1, 0}),
	}))

	results, err := m.Query(ctx, []float32{1, 0}, 50, Filter{})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryUpsertDimensionMismatchLeavesIndexUnchanged(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("s1", "d1", models.SourceRegulation, []float32{1, 0, 0}),
	}))

	err := m.Upsert(ctx, []Entry{
		entry("s2", "d2", models.SourceRegulation, []float32{0, 1, 0}),
		entry("s3", "d2", models.SourceRegulation, []float32{0, 1}),
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "failed batch must not be partially applied")
}

func TestMemoryQueryDimensionMismatch(t *testing.T) {
	m := NewMemory(3)
	_, err := m.Query(context.Background(), []float32{1, 0}, 5, Filter{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}

func TestMemoryDeleteRemovesDocument(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("s1", "d1", models.SourceRegulation, []float32{1, 0}),
		entry("s2", "d2", models.SourceRegulation, []float32{0, 1}),
	}))
	require.NoError(t, m.Delete(ctx, "d1"))

	results, err := m.Query(ctx, []float32{1, 0}, 10, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "s2", results[0].Entry.Segment.SegmentID)
}

func TestMemoryUpsertReplacesSameSegmentID(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("s1", "d1", models.SourceRegulation, []float32{1, 0}),
	}))
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("s1", "d1", models.SourceRegulation, []float32{0, 1}),
	}))

	n, err := m.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	results, err := m.Query(ctx, []float32{0, 1}, 1, Filter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
}

func TestMemorySourceTypeFilter(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(2)
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("reg1", "d1", models.SourceRegulation, []float32{1, 0}),
		entry("con1", "d2", models.SourceContract, []float32{1, 0}),
	}))

	results, err := m.Query(ctx, []float32{1, 0}, 10, Filter{SourceType: models.SourceRegulation})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "reg1", results[0].Entry.Segment.SegmentID)
}

func TestMemorySnapshotRoundTrip(t *testing.T) {
	ctx := context.Background()
	m := NewMemory(3)
	require.NoError(t, m.Upsert(ctx, []Entry{
		entry("s1", "d1", models.SourceRegulation, []float32{1, 0, 0}),
		entry("s2", "d1", models.SourceRegulation, []float32{0.7, 0.3, 0}),
		entry("s3", "d2", models.SourceContract, []float32{0, 0, 1}),
	}))

	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, m.SaveFile(path))

	restored := NewMemory(3)
	require.NoError(t, restored.LoadFile(path))

	want, err := m.Query(ctx, []float32{1, 0, 0}, 3, Filter{})
	require.NoError(t, err)
	got, err := restored.Query(ctx, []float32{1, 0, 0}, 3, Filter{})
	require.NoError(t, err)

	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].Entry.Segment.SegmentID, got[i].Entry.Segment.SegmentID)
		assert.InDelta(t, want[i].Score, got[i].Score, 1e-9)
	}
}

func TestMemoryLoadFileDimensionMismatch(t *testing.T) {
	m := NewMemory(3)
	require.NoError(t, m.Upsert(context.Background(), []Entry{
		entry("s1", "d1", models.SourceRegulation, []float32{1, 0, 0}),
	}))
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, m.SaveFile(path))

	other := NewMemory(8)
	err := other.LoadFile(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDimensionMismatch))
}
