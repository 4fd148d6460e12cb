// Package textutil has the string helpers shared by the filter, deduplicator,
// classifier, scorer and enricher.
package textutil

import (
	"regexp"
	"strings"
	"sync"
	"unicode"
	"unicode/utf8"
)

// Normalize lowercases s, replaces punctuation with spaces and collapses
// whitespace. Letters and digits are kept for any script.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := true
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(unicode.ToLower(r))
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimRight(b.String(), " ")
}

// Prefix returns at most n runes of s.
func Prefix(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

var tagExpr = regexp.MustCompile(`<[^>]*>`)

// StripTags removes anything that looks like an HTML tag.
func StripTags(s string) string {
	return strings.Join(strings.Fields(tagExpr.ReplaceAllString(s, " ")), " ")
}

// ContentWords returns the distinct normalized words of s that have at least
// minLen runes.
func ContentWords(s string, minLen int) map[string]struct{} {
	words := map[string]struct{}{}
	for _, w := range strings.Fields(Normalize(s)) {
		if utf8.RuneCountInString(w) >= minLen {
			words[w] = struct{}{}
		}
	}
	return words
}

// SharedWords counts content words (len >= minLen) present in both a and b.
func SharedWords(a, b string, minLen int) int {
	left := ContentWords(a, minLen)
	if len(left) == 0 {
		return 0
	}
	n := 0
	for w := range ContentWords(b, minLen) {
		if _, ok := left[w]; ok {
			n++
		}
	}
	return n
}

var (
	boundaryMu    sync.RWMutex
	boundaryCache = map[string]*regexp.Regexp{}
)

func boundaryExpr(keyword string) *regexp.Regexp {
	boundaryMu.RLock()
	re, ok := boundaryCache[keyword]
	boundaryMu.RUnlock()
	if ok {
		return re
	}
	re = regexp.MustCompile(`(?i)(^|[^\p{L}\p{N}])` + regexp.QuoteMeta(keyword) + `($|[^\p{L}\p{N}])`)
	boundaryMu.Lock()
	boundaryCache[keyword] = re
	boundaryMu.Unlock()
	return re
}

// ContainsWord reports whether keyword occurs in text on word boundaries,
// so "aig" does not match inside "synergistic". Case-insensitive.
func ContainsWord(text, keyword string) bool {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return false
	}
	return boundaryExpr(strings.ToLower(keyword)).MatchString(text)
}

// ContainsAny is the lenient matcher: phrases and long words match as
// substrings, short tokens (<=3 bytes) must stand alone ("ai" must not
// match "said").
func ContainsAny(text string, keywords []string) bool {
	_, ok := FirstMatch(text, keywords)
	return ok
}

// FirstMatch is ContainsAny that also returns the keyword that hit.
func FirstMatch(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k == "" {
			continue
		}
		if len(k) <= 3 && !strings.Contains(k, " ") {
			if ContainsWord(lower, k) {
				return k, true
			}
			continue
		}
		if strings.Contains(lower, k) {
			return k, true
		}
	}
	return "", false
}

// CountMatches returns how many distinct keywords ContainsAny would hit.
func CountMatches(text string, keywords []string) int {
	lower := strings.ToLower(text)
	n := 0
	for _, k := range keywords {
		if _, ok := FirstMatch(lower, []string{k}); ok {
			n++
		}
	}
	return n
}

// ContainsSubstring is the strict case-insensitive substring check used for
// denylists.
func ContainsSubstring(text string, keywords []string) (string, bool) {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		k = strings.ToLower(strings.TrimSpace(k))
		if k != "" && strings.Contains(lower, k) {
			return k, true
		}
	}
	return "", false
}
