package util

import (
	"sort"
	"strings"
	"unicode"
)

// DisplaySnippet trims text to a printable, whitespace-normalized snippet
// of at most maxRunes runes for citation display.
func DisplaySnippet(s string, maxRunes int) string {
	return trimClean(s, maxRunes)
}

// EvidenceSnippet picks the sentence(s) of a regulation segment most
// relevant to the clause being scored, so report citations show the
// supporting language rather than the head of the segment.
func EvidenceSnippet(segmentText, clause string, maxRunes int) string {
	segmentText = trimClean(segmentText, 4000)
	if segmentText == "" {
		return ""
	}
	terms := meaningfulTerms(clause)
	if len(terms) == 0 {
		return trimClean(segmentText, maxRunes)
	}

	sentences := splitSentences(segmentText)
	if len(sentences) == 0 {
		return trimClean(segmentText, maxRunes)
	}

	type scored struct {
		sentence string
		hits     int
	}
	list := make([]scored, 0, len(sentences))
	for _, s := range sentences {
		low := strings.ToLower(s)
		hits := 0
		for _, term := range terms {
			if strings.Contains(low, term) {
				hits++
			}
		}
		list = append(list, scored{sentence: s, hits: hits})
	}
	sort.SliceStable(list, func(i, j int) bool {
		if list[i].hits == list[j].hits {
			return len(list[i].sentence) < len(list[j].sentence)
		}
		return list[i].hits > list[j].hits
	})

	best := strings.TrimSpace(list[0].sentence)
	if best == "" {
		return trimClean(segmentText, maxRunes)
	}
	if len(list) > 1 && list[1].hits > 0 {
		return trimClean(best+" "+strings.TrimSpace(list[1].sentence), maxRunes)
	}
	return trimClean(best, maxRunes)
}

func splitSentences(s string) []string {
	out := make([]string, 0, 8)
	var b strings.Builder
	for _, r := range s {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			x := strings.TrimSpace(b.String())
			if x != "" {
				out = append(out, x)
			}
			b.Reset()
		}
	}
	if rest := strings.TrimSpace(b.String()); rest != "" {
		out = append(out, rest)
	}
	return out
}

func meaningfulTerms(s string) []string {
	s = strings.ToLower(trimClean(s, 2000))
	stop := map[string]struct{}{
		"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "to": {}, "of": {}, "in": {}, "on": {},
		"for": {}, "is": {}, "are": {}, "was": {}, "were": {}, "shall": {}, "may": {}, "must": {},
		"which": {}, "that": {}, "this": {}, "these": {}, "those": {}, "with": {}, "from": {}, "any": {},
	}
	uniq := map[string]struct{}{}
	terms := make([]string, 0, 16)
	for _, f := range strings.Fields(s) {
		f = strings.Trim(f, ",.;:!?()[]{}\"'`")
		if len(f) < 3 {
			continue
		}
		if _, ok := stop[f]; ok {
			continue
		}
		if _, ok := uniq[f]; ok {
			continue
		}
		uniq[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}

func trimClean(s string, maxRunes int) string {
	if maxRunes <= 0 {
		maxRunes = 420
	}
	s = SanitizeText(s)
	s = strings.Join(strings.Fields(s), " ")

	out := make([]rune, 0, len(s))
	for _, r := range s {
		if !unicode.IsPrint(r) {
			continue
		}
		out = append(out, r)
	}
	trimmed := strings.TrimSpace(string(out))
	runes := []rune(trimmed)
	if len(runes) > maxRunes {
		return strings.TrimSpace(string(runes[:maxRunes])) + "..."
	}
	return trimmed
}
