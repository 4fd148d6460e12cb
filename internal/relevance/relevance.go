// Package relevance decides whether a fetched item is worth processing at all.
// The filter is inclusive by design of its lists: only an exclusion keyword
// rejects outright; any one positive signal admits the item.
package relevance

import (
	"strings"
	"unicode/utf8"

	"github.com/deusflow/signalfeed/internal/taxonomy"
	"github.com/deusflow/signalfeed/internal/textutil"
)

// Decision explains a verdict; Reason names the signal that decided it.
type Decision struct {
	Relevant bool
	Reason   string
	Keyword  string
}

type Filter struct {
	rules taxonomy.Relevance
}

func New(tax taxonomy.Taxonomy) *Filter {
	return &Filter{rules: tax.Relevance}
}

// IsRelevant reports whether title and snippet pass the filter.
func (f *Filter) IsRelevant(title, snippet string) bool {
	return f.Check(title, snippet, "").Relevant
}

// IsRelevantFrom also admits items from trusted sources.
func (f *Filter) IsRelevantFrom(title, snippet, source string) bool {
	return f.Check(title, snippet, source).Relevant
}

func (f *Filter) Check(title, snippet, source string) Decision {
	text := strings.TrimSpace(title + " " + snippet)

	if k, hit := textutil.ContainsSubstring(text, f.rules.Exclude); hit {
		return Decision{Reason: "excluded", Keyword: k}
	}

	lists := []struct {
		reason string
		terms  []string
	}{
		{"include", f.rules.Include},
		{"business_term", f.rules.BusinessTerms},
		{"industry_term", f.rules.IndustryTerms},
		{"action_verb", f.rules.ActionVerbs},
	}
	for _, l := range lists {
		if k, hit := textutil.FirstMatch(text, l.terms); hit {
			return Decision{Relevant: true, Reason: l.reason, Keyword: k}
		}
	}

	if f.rules.MinTextLength > 0 && utf8.RuneCountInString(text) >= f.rules.MinTextLength {
		return Decision{Relevant: true, Reason: "length"}
	}

	if source != "" {
		for _, s := range f.rules.TrustedSources {
			if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(source)) {
				return Decision{Relevant: true, Reason: "trusted_source", Keyword: s}
			}
		}
	}

	return Decision{Reason: "no_signal"}
}
