package enrich

import (
	"fmt"
	"strings"

	"github.com/deusflow/signalfeed/internal/textutil"
)

const (
	minSharedWords = 2
	minWordLen     = 4
)

// Validator decides whether generated text is about its source.
type Validator struct {
	phrases []string
}

func NewValidator(genericPhrases []string) *Validator {
	phrases := make([]string, 0, len(genericPhrases))
	for _, p := range genericPhrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			phrases = append(phrases, p)
		}
	}
	return &Validator{phrases: phrases}
}

// IsSpecific reports whether generated avoids every generic phrase and shares
// at least two content words of four or more letters with source.
func (v *Validator) IsSpecific(source, generated string) bool {
	return v.Check(source, generated) == nil
}

// Check is IsSpecific with the reason for a rejection.
func (v *Validator) Check(source, generated string) error {
	if strings.TrimSpace(generated) == "" {
		return fmt.Errorf("%w: empty text", ErrNotSpecific)
	}
	// Curly apostrophes would otherwise slip past "today's".
	text := strings.ReplaceAll(generated, "’", "'")
	if phrase, ok := textutil.ContainsSubstring(text, v.phrases); ok {
		return fmt.Errorf("%w: generic phrase %q", ErrNotSpecific, phrase)
	}
	if n := textutil.SharedWords(source, generated, minWordLen); n < minSharedWords {
		return fmt.Errorf("%w: %d shared words with the source", ErrNotSpecific, n)
	}
	return nil
}

// checkMetric also requires value to appear in each field.
func (v *Validator) checkMetric(source, value string, e Enrichment) error {
	if err := v.Check(source, e.text()); err != nil {
		return err
	}
	if !strings.Contains(e.WhyItMatters, value) {
		return fmt.Errorf("%w: why it matters does not cite %s", ErrNotSpecific, value)
	}
	if !strings.Contains(e.TalkTrack, value) {
		return fmt.Errorf("%w: talk track does not cite %s", ErrNotSpecific, value)
	}
	return nil
}
