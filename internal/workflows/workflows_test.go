package workflows

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/testsuite"

	"clausecheck/internal/activities"
	"clausecheck/internal/chunker"
	"clausecheck/internal/index"
	"clausecheck/internal/ingest"
	"clausecheck/internal/models"
	"clausecheck/internal/providers"
	"clausecheck/internal/scoring"
)

const testDim = 32

type failingLLM struct{}

func (failingLLM) Generate(ctx context.Context, req providers.GenerateRequest) (providers.GenerateResponse, providers.ProviderInfo, error) {
	return providers.GenerateResponse{}, providers.ProviderInfo{Name: "failing"},
		providers.ErrGenerationUnavailable
}

func regulationText() string {
	var sb strings.Builder
	for i := 0; i < 6; i++ {
		sb.WriteString("Termination requires written notice at least thirty days in advance. ")
		sb.WriteString("Deletion requests must be honored within the retention window.\n\n")
	}
	return sb.String()
}

const contractText = `SECTION 1. Termination
Either party may terminate this agreement with five days written notice.

SECTION 2. Data Handling
Customer data deletion requests are honored within the retention window.`

func testActivities(t *testing.T, llm providers.LLMProvider) *activities.Activities {
	t.Helper()
	mem := index.NewMemory(testDim)
	embedder := providers.NewMockProvider(testDim)
	pipeline := &ingest.Pipeline{
		Index:    mem,
		Embedder: embedder,
		Chunk:    chunker.Config{ChunkSize: 300, Overlap: 60, Lookahead: 40},
		EmbedDim: testDim,
	}
	_, err := pipeline.IngestText(context.Background(), "reg-doc", "regulation.txt",
		regulationText(), models.SourceRegulation)
	require.NoError(t, err)

	scorer := &scoring.Scorer{
		Retriever: &scoring.Retriever{
			Index:    mem,
			Embedder: embedder,
			TopK:     3,
			EmbedDim: testDim,
		},
		LLM:             llm,
		MaxContextChars: 4000,
	}
	return activities.New(activities.Deps{
		Pipeline:   pipeline,
		Scorer:     scorer,
		DataOut:    t.TempDir(),
		ProviderID: "mock",
	})
}

func TestContractAnalysisWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ContractAnalysisWorkflow)
	env.RegisterActivity(testActivities(t, providers.NewMockProvider(testDim)))

	env.ExecuteWorkflow(ContractAnalysisWorkflow, ContractAnalysisInput{
		ContractID:  "contract-1",
		Text:        contractText,
		MaxParallel: 2,
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result ContractAnalysisResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Len(t, result.Report.Verdicts, 2)
	for i, verdict := range result.Report.Verdicts {
		assert.Equal(t, i, verdict.ClauseIndex)
		assert.Equal(t, models.VerdictAmbiguous, verdict.Category)
		assert.NotEmpty(t, verdict.Citations)
	}
	assert.Equal(t, "contract-1", result.Report.ContractID)
	assert.NotEmpty(t, result.ReportPath)

	raw, err := os.ReadFile(result.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "contract-1")
}

func TestContractAnalysisWorkflowFailsWhenEveryClauseFails(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(ContractAnalysisWorkflow)
	env.RegisterActivity(testActivities(t, failingLLM{}))

	env.ExecuteWorkflow(ContractAnalysisWorkflow, ContractAnalysisInput{
		ContractID:  "contract-1",
		Text:        contractText,
		MaxParallel: 2,
	})
	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clauses failed")
}

func TestCorpusIngestWorkflow(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "gdpr.txt"), []byte(regulationText()), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "blank.txt"), []byte("  \n"), 0o644))

	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(CorpusIngestWorkflow)
	env.RegisterWorkflow(DocumentIngestWorkflow)
	env.RegisterActivity(testActivities(t, providers.NewMockProvider(testDim)))

	env.ExecuteWorkflow(CorpusIngestWorkflow, CorpusIngestInput{
		Dir:         dir,
		SourceType:  models.SourceRegulation,
		MaxParallel: 2,
	})
	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result CorpusIngestResult
	require.NoError(t, env.GetWorkflowResult(&result))
	require.Len(t, result.Succeeded, 1)
	assert.True(t, strings.HasSuffix(result.Succeeded[0], "gdpr.txt"))
	require.Len(t, result.Failed, 1)
	assert.NotEmpty(t, result.SummaryPath)
}

func TestDocumentIngestWorkflowIdempotentRetry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gdpr.txt")
	require.NoError(t, os.WriteFile(path, []byte(regulationText()), 0o644))

	acts := testActivities(t, providers.NewMockProvider(testDim))

	run := func() DocumentIngestResult {
		var ts testsuite.WorkflowTestSuite
		env := ts.NewTestWorkflowEnvironment()
		env.RegisterWorkflow(DocumentIngestWorkflow)
		env.RegisterActivity(acts)
		env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{
			Path:       path,
			SourceType: models.SourceRegulation,
		})
		require.True(t, env.IsWorkflowCompleted())
		require.NoError(t, env.GetWorkflowError())
		var result DocumentIngestResult
		require.NoError(t, env.GetWorkflowResult(&result))
		return result
	}

	first := run()
	second := run()
	assert.Equal(t, first.DocID, second.DocID)
	assert.Equal(t, first.SegmentCount, second.SegmentCount)
}

func TestDocumentIngestWorkflowFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()
	env.RegisterWorkflow(DocumentIngestWorkflow)
	env.RegisterActivity(testActivities(t, providers.NewMockProvider(testDim)))

	env.ExecuteWorkflow(DocumentIngestWorkflow, DocumentIngestInput{
		Path:       filepath.Join(t.TempDir(), "missing.txt"),
		SourceType: models.SourceRegulation,
	})
	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
}
