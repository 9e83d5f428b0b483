package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"clausecheck/internal/models"
)

// Contract clauses are usually introduced by a numbered legal heading.
var clauseHeading = regexp.MustCompile(`(?mi)^(?:SECTION|ARTICLE|CLAUSE)\s+[IVXLCDM0-9]+[.:]?[^\n]*`)

// SplitClauses segments normalized contract text into clauses for
// per-clause scoring. It splits at legal headings when the document has
// them, falls back to paragraphs, and treats unstructured text as a
// single clause. Offsets are rune offsets into the input.
func SplitClauses(text string) []models.Segment {
	if strings.TrimSpace(text) == "" {
		return []models.Segment{}
	}

	spans := clauseHeading.FindAllStringIndex(text, -1)
	if len(spans) == 0 {
		return splitParagraphs(text)
	}

	clauses := make([]models.Segment, 0, len(spans)+1)
	if head := text[:spans[0][0]]; strings.TrimSpace(head) != "" {
		clauses = appendClause(clauses, text, 0, spans[0][0])
	}
	for i, span := range spans {
		end := len(text)
		if i+1 < len(spans) {
			end = spans[i+1][0]
		}
		clauses = appendClause(clauses, text, span[0], end)
	}
	return reindex(clauses)
}

func splitParagraphs(text string) []models.Segment {
	clauses := make([]models.Segment, 0, 8)
	start := 0
	for {
		rel := strings.Index(text[start:], "\n\n")
		if rel < 0 {
			clauses = appendClause(clauses, text, start, len(text))
			break
		}
		clauses = appendClause(clauses, text, start, start+rel)
		start += rel + 2
	}
	return reindex(clauses)
}

func appendClause(clauses []models.Segment, text string, start, end int) []models.Segment {
	body := text[start:end]
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return clauses
	}
	lead := strings.Index(body, trimmed)
	runeStart := utf8.RuneCountInString(text[:start+lead])
	return append(clauses, models.Segment{
		Start: runeStart,
		End:   runeStart + utf8.RuneCountInString(trimmed),
		Text:  trimmed,
	})
}

func reindex(clauses []models.Segment) []models.Segment {
	for i := range clauses {
		clauses[i].Index = i
	}
	return clauses
}
