package providers

import (
	"fmt"
	"strings"
)

// ProviderRef is one entry from a provider list such as
// "openai:primary|mock". The alias selects a keyed credential
// (CLAUSECHECK_OPENAI_KEY_PRIMARY); an entry without an alias falls
// back to the vendor default env var.
type ProviderRef struct {
	Name  string
	Alias string
}

func (r ProviderRef) String() string {
	if r.Alias == "" {
		return r.Name
	}
	return r.Name + ":" + r.Alias
}

// ParseProviderList splits a pipe-separated provider list into refs.
// Empty entries are skipped; an entry with more than one colon is an
// error.
func ParseProviderList(raw string) ([]ProviderRef, error) {
	var refs []ProviderRef
	for _, part := range strings.Split(raw, "|") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		pieces := strings.Split(part, ":")
		switch len(pieces) {
		case 1:
			refs = append(refs, ProviderRef{Name: strings.ToLower(pieces[0])})
		case 2:
			refs = append(refs, ProviderRef{
				Name:  strings.ToLower(strings.TrimSpace(pieces[0])),
				Alias: strings.ToLower(strings.TrimSpace(pieces[1])),
			})
		default:
			return nil, fmt.Errorf("invalid provider entry %q", part)
		}
	}
	return refs, nil
}
