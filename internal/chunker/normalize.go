package chunker

import (
	"strings"

	"clausecheck/internal/util"

	"golang.org/x/text/unicode/norm"
)

// Replacements for typographic artifacts common in legal documents.
// The section sign is spelled out so embeddings see the same token the
// regulation text uses in prose.
var legalReplacer = strings.NewReplacer(
	"“", `"`, "”", `"`,
	"‘", "'", "’", "'",
	"–", "-", "—", "-",
	"§", "Section",
	" ", " ", " ", " ",
	"­", "",
)

// Normalize prepares raw document text for chunking and embedding:
// NFKC unicode normalization, control-character stripping, typographic
// replacements, and whitespace collapsing. Newlines survive (capped at
// one blank line) because the chunker and clause splitter use them as
// boundaries. Deterministic for identical input.
func Normalize(text string) string {
	text = norm.NFKC.String(text)
	text = util.SanitizeText(text)
	text = legalReplacer.Replace(text)
	return collapseWhitespace(text)
}

func collapseWhitespace(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	spacePending := false
	newlines := 0
	for _, r := range s {
		switch {
		case r == '\n' || r == '\r':
			newlines++
			spacePending = false
		case r == ' ' || r == '\t':
			spacePending = true
		default:
			if newlines > 0 && b.Len() > 0 {
				if newlines > 2 {
					newlines = 2
				}
				for i := 0; i < newlines; i++ {
					b.WriteByte('\n')
				}
			} else if spacePending && b.Len() > 0 {
				b.WriteByte(' ')
			}
			newlines = 0
			spacePending = false
			b.WriteRune(r)
		}
	}
	return b.String()
}
