package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clausecheck/internal/chunker"
	"clausecheck/internal/index"
	"clausecheck/internal/models"
	"clausecheck/internal/providers"
)

const testDim = 32

func testPipeline(t *testing.T, embedder providers.EmbeddingProvider) (*Pipeline, *index.Memory) {
	t.Helper()
	mem := index.NewMemory(testDim)
	return &Pipeline{
		Index:    mem,
		Embedder: embedder,
		Chunk:    chunker.Config{ChunkSize: 200, Overlap: 40, Lookahead: 30},
		EmbedDim: testDim,
	}, mem
}

func regulationText() string {
	var sb strings.Builder
	for i := 0; i < 8; i++ {
		sb.WriteString("A processor must honor deletion requests within thirty days of receipt. ")
		sb.WriteString("Termination requires written notice delivered in advance.\n\n")
	}
	return sb.String()
}

func TestIngestTextIdempotent(t *testing.T) {
	ctx := context.Background()
	p, mem := testPipeline(t, providers.NewMockProvider(testDim))

	first, err := p.IngestText(ctx, "doc-1", "gdpr.txt", regulationText(), models.SourceRegulation)
	require.NoError(t, err)
	require.Greater(t, first.SegmentCount, 1)

	countAfterFirst, err := mem.Count(ctx)
	require.NoError(t, err)

	second, err := p.IngestText(ctx, "doc-1", "gdpr.txt", regulationText(), models.SourceRegulation)
	require.NoError(t, err)
	assert.Equal(t, first.SegmentCount, second.SegmentCount)

	countAfterSecond, err := mem.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, countAfterFirst, countAfterSecond, "re-ingesting a document must not grow the index")
}

type brokenEmbedder struct{}

func (brokenEmbedder) Embed(ctx context.Context, req providers.EmbedRequest) ([][]float32, providers.ProviderInfo, error) {
	return nil, providers.ProviderInfo{Name: "broken"}, errors.New("status 503: service unavailable")
}

func TestIngestTextEmbedFailureLeavesIndexUnchanged(t *testing.T) {
	ctx := context.Background()
	p, mem := testPipeline(t, providers.NewMockProvider(testDim))

	_, err := p.IngestText(ctx, "doc-1", "gdpr.txt", regulationText(), models.SourceRegulation)
	require.NoError(t, err)
	before, err := mem.Count(ctx)
	require.NoError(t, err)
	require.Greater(t, before, 0)

	p.Embedder = brokenEmbedder{}
	_, err = p.IngestText(ctx, "doc-1", "gdpr.txt", regulationText(), models.SourceRegulation)
	require.Error(t, err)

	after, err := mem.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after, "failed ingest must not drop or partially replace existing segments")
}

func TestIngestTextEmptyDocument(t *testing.T) {
	p, _ := testPipeline(t, providers.NewMockProvider(testDim))
	_, err := p.IngestText(context.Background(), "doc-1", "empty.txt", "   \n\n ", models.SourceRegulation)
	assert.Error(t, err)
}

func TestIngestDirContinuesPastFailures(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte(regulationText()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("  \n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "c.csv"), []byte("ignored"), 0o644))

	p, _ := testPipeline(t, providers.NewMockProvider(testDim))
	result, err := p.IngestDir(ctx, dir, models.SourceRegulation)
	require.NoError(t, err)

	assert.Equal(t, 1, result.SucceededCount())
	assert.Equal(t, 1, result.FailedCount())
	assert.Contains(t, result.Failed, "b.txt")
}

func TestIngestFileContentHashDocID(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	pathA := filepath.Join(dir, "first.txt")
	pathB := filepath.Join(dir, "second.txt")
	require.NoError(t, os.WriteFile(pathA, []byte(regulationText()), 0o644))
	require.NoError(t, os.WriteFile(pathB, []byte(regulationText()), 0o644))

	p, _ := testPipeline(t, providers.NewMockProvider(testDim))
	a, err := p.IngestFile(ctx, pathA, models.SourceRegulation)
	require.NoError(t, err)
	b, err := p.IngestFile(ctx, pathB, models.SourceRegulation)
	require.NoError(t, err)

	assert.Equal(t, a.DocID, b.DocID, "identical contents must hash to the same document ID")
}
