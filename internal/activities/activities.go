package activities

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"clausecheck/internal/chunker"
	"clausecheck/internal/ingest"
	"clausecheck/internal/models"
	"clausecheck/internal/scoring"
	"clausecheck/internal/storage"
	"clausecheck/internal/util"
)

// Deps carries the wired components activities close over. Docs and
// Audit are nil when no Postgres is configured; the activities then
// skip bookkeeping instead of failing.
type Deps struct {
	Pipeline   *ingest.Pipeline
	Scorer     *scoring.Scorer
	DataOut    string
	Docs       *storage.DocumentRepo
	Audit      *storage.AuditRepo
	ProviderID string
}

type Activities struct {
	deps Deps
}

func New(deps Deps) *Activities {
	return &Activities{deps: deps}
}

type ListCorpusInput struct {
	Dir string `json:"dir"`
}

// ListCorpusFiles enumerates supported documents under a directory in
// sorted order, so the workflow fans out over a stable list.
func (a *Activities) ListCorpusFiles(ctx context.Context, input ListCorpusInput) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(input.Dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch strings.ToLower(filepath.Ext(path)) {
		case ".pdf", ".txt", ".md":
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list corpus %s: %w", input.Dir, err)
	}
	sort.Strings(paths)
	return paths, nil
}

type IngestDocumentInput struct {
	Path       string            `json:"path"`
	SourceType models.SourceType `json:"source_type"`
}

type IngestDocumentResult struct {
	DocID        string `json:"doc_id"`
	Filename     string `json:"filename"`
	SegmentCount int    `json:"segment_count"`
}

// IngestDocument runs the full pipeline for one file. Safe to retry:
// re-ingesting replaces the document's previous segments.
func (a *Activities) IngestDocument(ctx context.Context, input IngestDocumentInput) (IngestDocumentResult, error) {
	doc, err := a.deps.Pipeline.IngestFile(ctx, input.Path, input.SourceType)
	if err != nil {
		return IngestDocumentResult{}, err
	}
	return IngestDocumentResult{
		DocID:        doc.DocID,
		Filename:     doc.Filename,
		SegmentCount: doc.SegmentCount,
	}, nil
}

type MarkDocumentInput struct {
	DocID      string            `json:"doc_id"`
	SourceType models.SourceType `json:"source_type"`
	Filename   string            `json:"filename"`
	Status     string            `json:"status"`
	FailReason string            `json:"fail_reason,omitempty"`
}

// MarkDocument records ingestion state. A no-op without a database.
func (a *Activities) MarkDocument(ctx context.Context, input MarkDocumentInput) error {
	if a.deps.Docs == nil {
		return nil
	}
	if input.Status == storage.StatusPending {
		return a.deps.Docs.Upsert(ctx, models.Document{
			DocID:      input.DocID,
			SourceType: input.SourceType,
			Filename:   input.Filename,
			Status:     storage.StatusPending,
		})
	}
	return a.deps.Docs.SetStatus(ctx, input.DocID, input.Status, input.FailReason)
}

type SplitClausesInput struct {
	Text string `json:"text"`
}

// SplitClauses normalizes contract text and returns its clauses.
func (a *Activities) SplitClauses(ctx context.Context, input SplitClausesInput) ([]string, error) {
	clauses := chunker.SplitClauses(chunker.Normalize(input.Text))
	if len(clauses) == 0 {
		return nil, fmt.Errorf("contract has no clauses after normalization")
	}
	out := make([]string, len(clauses))
	for i, c := range clauses {
		out[i] = c.Text
	}
	return out, nil
}

type ScoreClauseInput struct {
	ContractID  string `json:"contract_id"`
	ClauseIndex int    `json:"clause_index"`
	ClauseText  string `json:"clause_text"`
}

// ScoreClause assesses one clause and records the call for audit.
func (a *Activities) ScoreClause(ctx context.Context, input ScoreClauseInput) (models.Verdict, error) {
	verdict, err := a.deps.Scorer.ScoreClause(ctx, input.ClauseIndex, input.ClauseText)
	if err != nil {
		return models.Verdict{}, err
	}
	if a.deps.Audit != nil {
		call := storage.ScoringCall{
			ContractID:  input.ContractID,
			ClauseIndex: input.ClauseIndex,
			Provider:    a.deps.ProviderID,
			Verdict:     string(verdict.Category),
			Confidence:  verdict.Confidence,
		}
		if err := a.deps.Audit.Record(ctx, call); err != nil {
			return models.Verdict{}, fmt.Errorf("record audit for clause %d: %w", input.ClauseIndex, err)
		}
	}
	return verdict, nil
}

type BuildReportInput struct {
	ContractID string           `json:"contract_id"`
	Verdicts   []models.Verdict `json:"verdicts"`
}

type BuildReportResult struct {
	Report models.Report `json:"report"`
	Path   string        `json:"path"`
}

// BuildReport aggregates verdicts and writes the report artifact.
func (a *Activities) BuildReport(ctx context.Context, input BuildReportInput) (BuildReportResult, error) {
	report := scoring.BuildReport(input.ContractID, input.Verdicts)
	path := filepath.Join(a.deps.DataOut, "reports", report.ReportID+".json")
	if err := util.WriteJSONAtomic(path, report); err != nil {
		return BuildReportResult{}, fmt.Errorf("write report artifact: %w", err)
	}
	return BuildReportResult{Report: report, Path: path}, nil
}

type CorpusSummaryInput struct {
	Dir       string            `json:"dir"`
	Succeeded []string          `json:"succeeded"`
	Failed    map[string]string `json:"failed,omitempty"`
	StartedAt time.Time         `json:"started_at"`
}

// WriteCorpusSummary persists the outcome of a corpus ingestion run.
func (a *Activities) WriteCorpusSummary(ctx context.Context, input CorpusSummaryInput) (string, error) {
	path := filepath.Join(a.deps.DataOut, "ingest", uuid.NewString()+".json")
	if err := util.WriteJSONAtomic(path, input); err != nil {
		return "", fmt.Errorf("write corpus summary: %w", err)
	}
	return path, nil
}
