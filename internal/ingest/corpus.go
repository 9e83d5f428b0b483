package ingest

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"clausecheck/internal/models"
)

// CorpusResult summarizes a directory ingestion. A failed document
// never blocks the rest of the corpus; its error lands in Failed.
type CorpusResult struct {
	Documents []DocumentResult  `json:"documents"`
	Failed    map[string]string `json:"failed,omitempty"`
}

func (r CorpusResult) SucceededCount() int { return len(r.Documents) }
func (r CorpusResult) FailedCount() int    { return len(r.Failed) }

// IngestDir walks root for supported documents and ingests each one.
// Files are processed in sorted path order for reproducible runs.
func (p *Pipeline) IngestDir(ctx context.Context, root string, sourceType models.SourceType) (CorpusResult, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
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
		return CorpusResult{}, err
	}
	sort.Strings(paths)

	result := CorpusResult{Failed: map[string]string{}}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		doc, err := p.IngestFile(ctx, path, sourceType)
		if err != nil {
			result.Failed[filepath.Base(path)] = err.Error()
			continue
		}
		result.Documents = append(result.Documents, doc)
	}
	if len(result.Failed) == 0 {
		result.Failed = nil
	}
	return result, nil
}
