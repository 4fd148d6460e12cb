// Package taxonomy holds the keyword lists and thresholds used to filter,
// classify and score content. A Taxonomy is built once at startup and passed
// by value to each component; nothing reads it from package state.
package taxonomy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/deusflow/signalfeed/internal/content"
)

// VerticalKeywords are the weighted terms of one vertical. Entities are
// company and brand names (weight 3), topics are generic terms (weight 1).
type VerticalKeywords struct {
	Entities []string `yaml:"entities"`
	Topics   []string `yaml:"topics"`
}

// Relevance drives the inclusion filter.
type Relevance struct {
	Exclude        []string `yaml:"exclude"`
	Include        []string `yaml:"include"`
	BusinessTerms  []string `yaml:"business_terms"`
	IndustryTerms  []string `yaml:"industry_terms"`
	ActionVerbs    []string `yaml:"action_verbs"`
	TrustedSources []string `yaml:"trusted_sources"`
	MinTextLength  int      `yaml:"min_text_length"`
}

// Classification drives the keyword classifier.
type Classification struct {
	EntityWeight int                                   `yaml:"entity_weight"`
	TopicWeight  int                                   `yaml:"topic_weight"`
	Fallback     content.Vertical                      `yaml:"fallback"`
	GenericTerms []string                              `yaml:"generic_terms"`
	Verticals    map[content.Vertical]VerticalKeywords `yaml:"verticals"`
}

// Category is a capped keyword bonus of the heuristic scorer.
type Category struct {
	Terms    []string `yaml:"terms"`
	PerMatch int      `yaml:"per_match"`
	Cap      int      `yaml:"cap"`
}

// Scoring drives the heuristic relevance scorer.
type Scoring struct {
	Base             int                      `yaml:"base"`
	ReputableSources []string                 `yaml:"reputable_sources"`
	SourceBonus      int                      `yaml:"source_bonus"`
	Martech          Category                 `yaml:"martech"`
	Adtech           Category                 `yaml:"adtech"`
	CRM              Category                 `yaml:"crm"`
	Enterprise       Category                 `yaml:"enterprise"`
	Irrelevant       Category                 `yaml:"irrelevant"` // PerMatch and Cap are penalties
	VerticalBonus    map[content.Vertical]int `yaml:"vertical_bonus"`
}

// Taxonomy is the full keyword configuration.
type Taxonomy struct {
	Relevance      Relevance      `yaml:"relevance"`
	Classification Classification `yaml:"classification"`
	Scoring        Scoring        `yaml:"scoring"`
	GenericPhrases []string       `yaml:"generic_phrases"`
}

// Load reads a YAML file and overlays it on Default. Sections missing from
// the file keep their defaults.
func Load(path string) (Taxonomy, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, fmt.Errorf("read taxonomy %s: %w", path, err)
	}
	var file Taxonomy
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return t, fmt.Errorf("parse taxonomy %s: %w", path, err)
	}
	t.merge(file)
	if err := t.Validate(); err != nil {
		return t, fmt.Errorf("taxonomy %s: %w", path, err)
	}
	return t, nil
}

// Validate rejects verticals outside the enumeration.
func (t Taxonomy) Validate() error {
	if !t.Classification.Fallback.Valid() {
		return fmt.Errorf("fallback vertical %q is not in the enumeration", t.Classification.Fallback)
	}
	for v := range t.Classification.Verticals {
		if !v.Valid() {
			return fmt.Errorf("vertical %q is not in the enumeration", v)
		}
	}
	for v := range t.Scoring.VerticalBonus {
		if !v.Valid() {
			return fmt.Errorf("vertical bonus for unknown vertical %q", v)
		}
	}
	return nil
}

func (t *Taxonomy) merge(o Taxonomy) {
	r := &t.Relevance
	r.Exclude = pick(o.Relevance.Exclude, r.Exclude)
	r.Include = pick(o.Relevance.Include, r.Include)
	r.BusinessTerms = pick(o.Relevance.BusinessTerms, r.BusinessTerms)
	r.IndustryTerms = pick(o.Relevance.IndustryTerms, r.IndustryTerms)
	r.ActionVerbs = pick(o.Relevance.ActionVerbs, r.ActionVerbs)
	r.TrustedSources = pick(o.Relevance.TrustedSources, r.TrustedSources)
	if o.Relevance.MinTextLength > 0 {
		r.MinTextLength = o.Relevance.MinTextLength
	}

	c := &t.Classification
	if o.Classification.EntityWeight > 0 {
		c.EntityWeight = o.Classification.EntityWeight
	}
	if o.Classification.TopicWeight > 0 {
		c.TopicWeight = o.Classification.TopicWeight
	}
	if o.Classification.Fallback != "" {
		c.Fallback = o.Classification.Fallback
	}
	c.GenericTerms = pick(o.Classification.GenericTerms, c.GenericTerms)
	if len(o.Classification.Verticals) > 0 {
		c.Verticals = o.Classification.Verticals
	}

	s := &t.Scoring
	if o.Scoring.Base > 0 {
		s.Base = o.Scoring.Base
	}
	s.ReputableSources = pick(o.Scoring.ReputableSources, s.ReputableSources)
	if o.Scoring.SourceBonus > 0 {
		s.SourceBonus = o.Scoring.SourceBonus
	}
	mergeCategory(&s.Martech, o.Scoring.Martech)
	mergeCategory(&s.Adtech, o.Scoring.Adtech)
	mergeCategory(&s.CRM, o.Scoring.CRM)
	mergeCategory(&s.Enterprise, o.Scoring.Enterprise)
	mergeCategory(&s.Irrelevant, o.Scoring.Irrelevant)
	if len(o.Scoring.VerticalBonus) > 0 {
		s.VerticalBonus = o.Scoring.VerticalBonus
	}

	t.GenericPhrases = pick(o.GenericPhrases, t.GenericPhrases)
}

func mergeCategory(dst *Category, src Category) {
	dst.Terms = pick(src.Terms, dst.Terms)
	if src.PerMatch > 0 {
		dst.PerMatch = src.PerMatch
	}
	if src.Cap > 0 {
		dst.Cap = src.Cap
	}
}

func pick(override, base []string) []string {
	if len(override) > 0 {
		return override
	}
	return base
}
