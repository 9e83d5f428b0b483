package scoring

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"clausecheck/internal/chunker"
	"clausecheck/internal/models"
	"clausecheck/internal/providers"
)

// Analyzer runs a full contract through the scorer. Clauses are scored
// concurrently up to MaxConcurrent; results keep clause order regardless
// of completion order.
type Analyzer struct {
	Scorer        *Scorer
	MaxConcurrent int
}

// Analyze splits the contract text into clauses and scores each one.
// A clause whose provider call fails is downgraded to ambiguous so one
// outage does not void the rest of the report, but if every clause
// failed that way the whole analysis errors.
func (a *Analyzer) Analyze(ctx context.Context, contractID, contractText string) (models.Report, error) {
	normalized := chunker.Normalize(contractText)
	clauses := chunker.SplitClauses(normalized)
	if len(clauses) == 0 {
		return models.Report{}, fmt.Errorf("contract %s has no clauses after normalization", contractID)
	}

	limit := a.MaxConcurrent
	if limit <= 0 {
		limit = 4
	}
	sem := make(chan struct{}, limit)
	verdicts := make([]models.Verdict, len(clauses))
	failures := make([]error, len(clauses))

	var wg sync.WaitGroup
	for i, clause := range clauses {
		wg.Add(1)
		go func(i int, text string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			verdict, err := a.Scorer.ScoreClause(ctx, i, text)
			if err != nil {
				failures[i] = err
				verdicts[i] = models.Verdict{
					ClauseIndex: i,
					ClauseText:  text,
					Category:    models.VerdictAmbiguous,
					Confidence:  0,
					Rationale:   "assessment unavailable for this clause",
				}
				return
			}
			verdicts[i] = verdict
		}(i, clause.Text)
	}
	wg.Wait()

	failedCount := 0
	for i, err := range failures {
		if err == nil {
			continue
		}
		failedCount++
		log.Printf("clause %d of contract %s failed: %v", i, contractID, err)
	}
	if failedCount == len(clauses) && allProviderOutages(failures) {
		return models.Report{}, fmt.Errorf("analysis of contract %s failed: %w", contractID, firstError(failures))
	}
	return BuildReport(contractID, verdicts), nil
}

func allProviderOutages(failures []error) bool {
	for _, err := range failures {
		if err == nil {
			return false
		}
		if !errors.Is(err, providers.ErrGenerationUnavailable) &&
			!errors.Is(err, providers.ErrEmbeddingUnavailable) {
			return false
		}
	}
	return true
}

func firstError(failures []error) error {
	for _, err := range failures {
		if err != nil {
			return err
		}
	}
	return nil
}
