package workflows

import (
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"clausecheck/internal/activities"
	"clausecheck/internal/models"
	"clausecheck/internal/storage"
)

// a is only used for method references passed to ExecuteActivity; the
// real receiver is bound at worker registration.
var a *activities.Activities

const (
	StatusQuery   = "status"
	ProgressQuery = "progress"
)

func defaultActivityOptions(ctx workflow.Context, timeout time.Duration) workflow.Context {
	return workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: timeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    3,
		},
	})
}

type CorpusIngestInput struct {
	Dir         string            `json:"dir"`
	SourceType  models.SourceType `json:"source_type"`
	MaxParallel int               `json:"max_parallel"`
}

type CorpusIngestResult struct {
	SummaryPath string            `json:"summary_path"`
	Succeeded   []string          `json:"succeeded"`
	Failed      map[string]string `json:"failed,omitempty"`
}

// CorpusIngestWorkflow fans a directory of documents out over child
// ingestion workflows, at most MaxParallel in flight. One failing
// document never takes the corpus down; its error is captured in the
// summary. The status query exposes per-file progress while running.
func CorpusIngestWorkflow(ctx workflow.Context, input CorpusIngestInput) (CorpusIngestResult, error) {
	logger := workflow.GetLogger(ctx)
	status := map[string]string{}
	if err := workflow.SetQueryHandler(ctx, StatusQuery, func() (map[string]string, error) {
		return status, nil
	}); err != nil {
		return CorpusIngestResult{}, err
	}

	actx := defaultActivityOptions(ctx, 2*time.Minute)
	var paths []string
	if err := workflow.ExecuteActivity(actx, a.ListCorpusFiles,
		activities.ListCorpusInput{Dir: input.Dir}).Get(ctx, &paths); err != nil {
		return CorpusIngestResult{}, fmt.Errorf("list corpus: %w", err)
	}
	for _, path := range paths {
		status[path] = "pending"
	}

	parallel := input.MaxParallel
	if parallel <= 0 {
		parallel = 3
	}

	result := CorpusIngestResult{Failed: map[string]string{}}
	startedAt := workflow.Now(ctx)
	for batchStart := 0; batchStart < len(paths); batchStart += parallel {
		batchEnd := batchStart + parallel
		if batchEnd > len(paths) {
			batchEnd = len(paths)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, batchEnd-batchStart)
		for _, path := range paths[batchStart:batchEnd] {
			cctx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{
				WorkflowID: workflow.GetInfo(ctx).WorkflowExecution.ID + "/doc/" + path,
			})
			futures = append(futures, workflow.ExecuteChildWorkflow(cctx, DocumentIngestWorkflow,
				DocumentIngestInput{Path: path, SourceType: input.SourceType}))
		}
		for i, future := range futures {
			path := paths[batchStart+i]
			var docResult DocumentIngestResult
			if err := future.Get(ctx, &docResult); err != nil {
				logger.Error("document ingest failed", "path", path, "error", err)
				status[path] = "failed"
				result.Failed[path] = err.Error()
				continue
			}
			status[path] = "indexed"
			result.Succeeded = append(result.Succeeded, path)
		}
	}
	if len(result.Failed) == 0 {
		result.Failed = nil
	}

	if err := workflow.ExecuteActivity(actx, a.WriteCorpusSummary, activities.CorpusSummaryInput{
		Dir:       input.Dir,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
		StartedAt: startedAt,
	}).Get(ctx, &result.SummaryPath); err != nil {
		return CorpusIngestResult{}, fmt.Errorf("write corpus summary: %w", err)
	}
	return result, nil
}

type DocumentIngestInput struct {
	Path       string            `json:"path"`
	SourceType models.SourceType `json:"source_type"`
}

type DocumentIngestResult struct {
	DocID        string `json:"doc_id"`
	Filename     string `json:"filename"`
	SegmentCount int    `json:"segment_count"`
}

// DocumentIngestWorkflow ingests one document and records its terminal
// status. Ingestion is idempotent, so Temporal retries are safe.
func DocumentIngestWorkflow(ctx workflow.Context, input DocumentIngestInput) (DocumentIngestResult, error) {
	actx := defaultActivityOptions(ctx, 10*time.Minute)

	var ingested activities.IngestDocumentResult
	err := workflow.ExecuteActivity(actx, a.IngestDocument,
		activities.IngestDocumentInput{Path: input.Path, SourceType: input.SourceType}).Get(ctx, &ingested)
	if err != nil {
		mark := activities.MarkDocumentInput{
			DocID:      input.Path,
			SourceType: input.SourceType,
			Filename:   input.Path,
			Status:     storage.StatusFailed,
			FailReason: err.Error(),
		}
		if markErr := workflow.ExecuteActivity(actx, a.MarkDocument, mark).Get(ctx, nil); markErr != nil {
			workflow.GetLogger(ctx).Error("mark failed document", "path", input.Path, "error", markErr)
		}
		return DocumentIngestResult{}, err
	}

	mark := activities.MarkDocumentInput{
		DocID:      ingested.DocID,
		SourceType: input.SourceType,
		Filename:   ingested.Filename,
		Status:     storage.StatusPending,
	}
	if err := workflow.ExecuteActivity(actx, a.MarkDocument, mark).Get(ctx, nil); err != nil {
		return DocumentIngestResult{}, fmt.Errorf("register document: %w", err)
	}
	mark.Status = storage.StatusIndexed
	if err := workflow.ExecuteActivity(actx, a.MarkDocument, mark).Get(ctx, nil); err != nil {
		return DocumentIngestResult{}, fmt.Errorf("mark document indexed: %w", err)
	}
	return DocumentIngestResult{
		DocID:        ingested.DocID,
		Filename:     ingested.Filename,
		SegmentCount: ingested.SegmentCount,
	}, nil
}

type ContractAnalysisInput struct {
	ContractID  string `json:"contract_id"`
	Text        string `json:"text"`
	MaxParallel int    `json:"max_parallel"`
}

type ContractAnalysisResult struct {
	Report     models.Report `json:"report"`
	ReportPath string        `json:"report_path"`
}

type Progress struct {
	Scored int `json:"scored"`
	Total  int `json:"total"`
}

// ContractAnalysisWorkflow scores every clause of a contract and writes
// the aggregated report. Clauses run in bounded batches; a clause whose
// activity exhausts its retries is downgraded to ambiguous, and only a
// contract where every clause failed errors out.
func ContractAnalysisWorkflow(ctx workflow.Context, input ContractAnalysisInput) (ContractAnalysisResult, error) {
	logger := workflow.GetLogger(ctx)
	progress := Progress{}
	if err := workflow.SetQueryHandler(ctx, ProgressQuery, func() (Progress, error) {
		return progress, nil
	}); err != nil {
		return ContractAnalysisResult{}, err
	}

	actx := defaultActivityOptions(ctx, 3*time.Minute)
	var clauses []string
	if err := workflow.ExecuteActivity(actx, a.SplitClauses,
		activities.SplitClausesInput{Text: input.Text}).Get(ctx, &clauses); err != nil {
		return ContractAnalysisResult{}, fmt.Errorf("split clauses: %w", err)
	}
	progress.Total = len(clauses)

	parallel := input.MaxParallel
	if parallel <= 0 {
		parallel = 4
	}

	verdicts := make([]models.Verdict, len(clauses))
	failedClauses := 0
	for batchStart := 0; batchStart < len(clauses); batchStart += parallel {
		batchEnd := batchStart + parallel
		if batchEnd > len(clauses) {
			batchEnd = len(clauses)
		}
		futures := make([]workflow.Future, 0, batchEnd-batchStart)
		for i := batchStart; i < batchEnd; i++ {
			futures = append(futures, workflow.ExecuteActivity(actx, a.ScoreClause, activities.ScoreClauseInput{
				ContractID:  input.ContractID,
				ClauseIndex: i,
				ClauseText:  clauses[i],
			}))
		}
		for i, future := range futures {
			clauseIndex := batchStart + i
			var verdict models.Verdict
			if err := future.Get(ctx, &verdict); err != nil {
				logger.Error("clause scoring failed", "clause", clauseIndex, "error", err)
				failedClauses++
				verdict = models.Verdict{
					ClauseIndex: clauseIndex,
					ClauseText:  clauses[clauseIndex],
					Category:    models.VerdictAmbiguous,
					Confidence:  0,
					Rationale:   "assessment unavailable for this clause",
				}
			}
			verdicts[clauseIndex] = verdict
			progress.Scored++
		}
	}
	if failedClauses == len(clauses) {
		return ContractAnalysisResult{}, fmt.Errorf("all %d clauses failed to score", len(clauses))
	}

	var built activities.BuildReportResult
	if err := workflow.ExecuteActivity(actx, a.BuildReport, activities.BuildReportInput{
		ContractID: input.ContractID,
		Verdicts:   verdicts,
	}).Get(ctx, &built); err != nil {
		return ContractAnalysisResult{}, fmt.Errorf("build report: %w", err)
	}
	return ContractAnalysisResult{Report: built.Report, ReportPath: built.Path}, nil
}
