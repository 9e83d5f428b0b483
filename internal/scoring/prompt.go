package scoring

import (
	"fmt"
	"strings"

	"clausecheck/internal/index"
	"clausecheck/internal/models"
)

// BuildPrompt renders the scoring prompt. Segments are numbered [1]..[n]
// in the order given; the model must cite by those numbers. The template
// is fully deterministic so identical inputs always produce identical
// prompts.
func BuildPrompt(clause string, hits []index.Result, categories []models.VerdictCategory) string {
	var sb strings.Builder
	sb.WriteString("Assess the contract clause below against the regulation excerpts that follow.\n\n")
	sb.WriteString("Contract clause:\n")
	sb.WriteString(strings.TrimSpace(clause))
	sb.WriteString("\n\nRegulation excerpts:\n")
	for i, hit := range hits {
		fmt.Fprintf(&sb, "[%d] (%s) %s\n", i+1, hit.Entry.Filename, strings.TrimSpace(hit.Entry.Segment.Text))
	}
	sb.WriteString("\nRespond with exactly one JSON object and nothing else:\n")
	sb.WriteString(`{"verdict": "<category>", "confidence": <0.0-1.0>, "citations": [<excerpt numbers>], "rationale": "<one or two sentences>"}`)
	sb.WriteString("\n\nRules:\n")
	fmt.Fprintf(&sb, "- verdict must be one of: %s\n", joinCategories(categories))
	fmt.Fprintf(&sb, "- citations must only use numbers 1 through %d\n", len(hits))
	sb.WriteString("- base the verdict only on the excerpts above; if they do not cover the clause, use not_applicable\n")
	return sb.String()
}

func joinCategories(categories []models.VerdictCategory) string {
	parts := make([]string, len(categories))
	for i, c := range categories {
		parts[i] = string(c)
	}
	return strings.Join(parts, ", ")
}
