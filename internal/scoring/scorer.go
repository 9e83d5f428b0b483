package scoring

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"unicode/utf8"

	"clausecheck/internal/index"
	"clausecheck/internal/models"
	"clausecheck/internal/providers"
	"clausecheck/internal/util"
)

const citationSnippetRunes = 240

// Scorer produces one verdict per clause. Provider outages surface as
// errors for the caller to handle; a response the parser rejects is
// absorbed here as an ambiguous verdict with zero confidence.
type Scorer struct {
	Retriever       *Retriever
	LLM             providers.LLMProvider
	Categories      []models.VerdictCategory
	MaxContextChars int
}

func (s *Scorer) categories() []models.VerdictCategory {
	if len(s.Categories) == 0 {
		return models.DefaultVerdictCategories()
	}
	return s.Categories
}

func (s *Scorer) ScoreClause(ctx context.Context, clauseIndex int, clause string) (models.Verdict, error) {
	hits, err := s.Retriever.Retrieve(ctx, clause)
	if err != nil {
		return models.Verdict{}, fmt.Errorf("retrieve for clause %d: %w", clauseIndex, err)
	}
	if len(hits) == 0 {
		return models.Verdict{
			ClauseIndex: clauseIndex,
			ClauseText:  clause,
			Category:    models.VerdictNotApplicable,
			Confidence:  0,
			Rationale:   "no regulation segments were relevant to this clause",
		}, nil
	}

	hits = truncateContext(hits, s.MaxContextChars)
	prompt := BuildPrompt(clause, hits, s.categories())
	contextTexts := make([]string, len(hits))
	for i, hit := range hits {
		contextTexts[i] = hit.Entry.Segment.Text
	}
	resp, _, err := s.LLM.Generate(ctx, providers.GenerateRequest{
		Operation: "score_clause",
		Prompt:    prompt,
		Context:   contextTexts,
	})
	if err != nil {
		return models.Verdict{}, fmt.Errorf("score clause %d: %w", clauseIndex, err)
	}

	parsed, err := ParseVerdict(resp.Text, len(hits), s.categories())
	if err != nil {
		if errors.Is(err, ErrScoringParse) {
			return models.Verdict{
				ClauseIndex: clauseIndex,
				ClauseText:  clause,
				Category:    models.VerdictAmbiguous,
				Confidence:  0,
				Rationale:   "assessment response could not be interpreted",
			}, nil
		}
		return models.Verdict{}, err
	}

	return models.Verdict{
		ClauseIndex: clauseIndex,
		ClauseText:  clause,
		Category:    parsed.Category,
		Confidence:  parsed.Confidence,
		Citations:   resolveCitations(parsed.Citations, hits, clause),
		Rationale:   parsed.Rationale,
	}, nil
}

// truncateContext drops the least similar hits until the combined
// segment text fits the budget. The best hit always survives.
func truncateContext(hits []index.Result, maxChars int) []index.Result {
	if maxChars <= 0 || len(hits) == 0 {
		return hits
	}
	total := 0
	for _, h := range hits {
		total += utf8.RuneCountInString(h.Entry.Segment.Text)
	}
	kept := append([]index.Result(nil), hits...)
	for total > maxChars && len(kept) > 1 {
		last := kept[len(kept)-1]
		total -= utf8.RuneCountInString(last.Entry.Segment.Text)
		kept = kept[:len(kept)-1]
	}
	return kept
}

// resolveCitations maps the model's 1-based refs back to segments. Refs
// are deduplicated and sorted so reports render stably.
func resolveCitations(refs []int, hits []index.Result, clause string) []models.Citation {
	if len(refs) == 0 {
		return nil
	}
	seen := map[int]struct{}{}
	ordered := make([]int, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		ordered = append(ordered, ref)
	}
	sort.Ints(ordered)

	citations := make([]models.Citation, 0, len(ordered))
	for _, ref := range ordered {
		hit := hits[ref-1]
		citations = append(citations, models.Citation{
			Ref:       ref,
			SegmentID: hit.Entry.Segment.SegmentID,
			DocID:     hit.Entry.Segment.DocID,
			Filename:  hit.Entry.Filename,
			Snippet:   util.EvidenceSnippet(hit.Entry.Segment.Text, clause, citationSnippetRunes),
			Score:     hit.Score,
		})
	}
	return citations
}
