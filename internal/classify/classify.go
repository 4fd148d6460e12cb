// Package classify assigns an industry vertical to content. Tier 1 is a
// deterministic keyword scorer used during ingestion; Tier 2 asks a model and
// is only used for explicit reclassification.
package classify

import (
	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/taxonomy"
	"github.com/deusflow/signalfeed/internal/textutil"
)

// Classifier is the Tier 1 keyword classifier.
type Classifier struct {
	cfg taxonomy.Classification
}

func New(tax taxonomy.Taxonomy) *Classifier {
	return &Classifier{cfg: tax.Classification}
}

// Scores returns the keyword score of every vertical with at least one hit.
// Entities in the text count EntityWeight, topics count TopicWeight. Any
// keyword found in sourceHint adds TopicWeight once more.
func (c *Classifier) Scores(title, body, sourceHint string) map[content.Vertical]int {
	text := title + " " + body
	scores := make(map[content.Vertical]int)
	for v, kw := range c.cfg.Verticals {
		score := 0
		for _, e := range kw.Entities {
			if textutil.ContainsWord(text, e) {
				score += c.cfg.EntityWeight
			}
		}
		for _, t := range kw.Topics {
			if textutil.ContainsWord(text, t) {
				score += c.cfg.TopicWeight
			}
		}
		if sourceHint != "" && (anyWord(sourceHint, kw.Entities) || anyWord(sourceHint, kw.Topics)) {
			score += c.cfg.TopicWeight
		}
		if score > 0 {
			scores[v] = score
		}
	}
	return scores
}

// Classify returns the highest scoring vertical. A tie at the top goes to the
// fallback vertical. With no keyword hits, generic marketing and technology
// wording also goes to the fallback; anything else is Other.
func (c *Classifier) Classify(title, body, sourceHint string) content.Vertical {
	scores := c.Scores(title, body, sourceHint)

	best, bestScore, tied := content.Vertical(""), 0, false
	// Walk the canonical order so the result never depends on map iteration.
	for _, v := range content.Verticals() {
		s := scores[v]
		switch {
		case s > bestScore:
			best, bestScore, tied = v, s, false
		case s == bestScore && s > 0:
			tied = true
		}
	}

	if bestScore == 0 {
		if textutil.ContainsAny(title+" "+body, c.cfg.GenericTerms) {
			return c.cfg.Fallback
		}
		return content.VerticalOther
	}
	if tied {
		return c.cfg.Fallback
	}
	return best
}

func anyWord(text string, keywords []string) bool {
	for _, k := range keywords {
		if textutil.ContainsWord(text, k) {
			return true
		}
	}
	return false
}
