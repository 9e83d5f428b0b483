package scoring

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"clausecheck/internal/models"
)

// ErrScoringParse marks a model response that could not be turned into
// a valid verdict. Callers recover locally by downgrading the clause to
// ambiguous rather than failing the whole analysis.
var ErrScoringParse = errors.New("unparseable scoring response")

type rawVerdict struct {
	Verdict    string  `json:"verdict"`
	Confidence float64 `json:"confidence"`
	Citations  []int   `json:"citations"`
	Rationale  string  `json:"rationale"`
}

// ParsedVerdict is the validated model output before citation refs are
// resolved back to segments.
type ParsedVerdict struct {
	Category   models.VerdictCategory
	Confidence float64
	Citations  []int
	Rationale  string
}

// ParseVerdict validates a model response against the category set and
// the number of excerpts that were in the prompt. Confidence is clamped
// to [0, 1]; an unknown category or an out-of-range citation is a parse
// failure, not something to silently repair.
func ParseVerdict(text string, numSegments int, categories []models.VerdictCategory) (ParsedVerdict, error) {
	payload := extractJSONObject(text)
	if payload == "" {
		return ParsedVerdict{}, fmt.Errorf("%w: no JSON object in response", ErrScoringParse)
	}
	var raw rawVerdict
	if err := json.Unmarshal([]byte(payload), &raw); err != nil {
		return ParsedVerdict{}, fmt.Errorf("%w: %v", ErrScoringParse, err)
	}

	category := models.VerdictCategory(strings.ToLower(strings.TrimSpace(raw.Verdict)))
	if !categoryAllowed(category, categories) {
		return ParsedVerdict{}, fmt.Errorf("%w: unknown verdict category %q", ErrScoringParse, raw.Verdict)
	}
	for _, ref := range raw.Citations {
		if ref < 1 || ref > numSegments {
			return ParsedVerdict{}, fmt.Errorf("%w: citation %d out of range 1..%d", ErrScoringParse, ref, numSegments)
		}
	}

	confidence := raw.Confidence
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return ParsedVerdict{
		Category:   category,
		Confidence: confidence,
		Citations:  raw.Citations,
		Rationale:  strings.TrimSpace(raw.Rationale),
	}, nil
}

func categoryAllowed(c models.VerdictCategory, categories []models.VerdictCategory) bool {
	for _, allowed := range categories {
		if c == allowed {
			return true
		}
	}
	return false
}

// extractJSONObject strips markdown fences and surrounding prose,
// returning the outermost {...} span. Models wrap JSON in fences often
// enough that this is worth doing before unmarshal.
func extractJSONObject(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimPrefix(text, "```")
		if i := strings.LastIndex(text, "```"); i >= 0 {
			text = text[:i]
		}
		text = strings.TrimSpace(text)
	}
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ""
	}
	return text[start : end+1]
}
