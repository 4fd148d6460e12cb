// Package scoring rates the business relevance of a record from 0 to 100.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/llm"
	"github.com/deusflow/signalfeed/internal/taxonomy"
	"github.com/deusflow/signalfeed/internal/textutil"
)

type Method string

const (
	MethodHeuristic Method = "heuristic"
	MethodModel     Method = "model"
)

const subScoreMax = 25

// Input is what the scorer looks at.
type Input struct {
	Title        string
	Summary      string
	SourceName   string
	Vertical     content.Vertical
	WhyItMatters string
	TalkTrack    string
}

func (in Input) text() string {
	return strings.Join([]string{in.Title, in.Summary, in.WhyItMatters, in.TalkTrack}, " ")
}

// Breakdown itemizes a heuristic score.
type Breakdown struct {
	Base          int
	SourceBonus   int
	Martech       int
	Adtech        int
	CRM           int
	Enterprise    int
	VerticalBonus int
	Penalty       int
	Total         int
}

type Scorer struct {
	cfg taxonomy.Scoring
	gen llm.Generator
	log *slog.Logger
}

// New builds a scorer. gen may be nil when model scoring is not used.
func New(tax taxonomy.Taxonomy, gen llm.Generator, log *slog.Logger) *Scorer {
	if log == nil {
		log = slog.Default()
	}
	return &Scorer{cfg: tax.Scoring, gen: gen, log: log}
}

// Score is the deterministic heuristic score, clamped to [0,100].
func (s *Scorer) Score(in Input) int {
	return s.Breakdown(in).Total
}

func (s *Scorer) Breakdown(in Input) Breakdown {
	text := in.text()
	b := Breakdown{
		Base:          s.cfg.Base,
		Martech:       capped(text, s.cfg.Martech),
		Adtech:        capped(text, s.cfg.Adtech),
		CRM:           capped(text, s.cfg.CRM),
		Enterprise:    capped(text, s.cfg.Enterprise),
		VerticalBonus: s.cfg.VerticalBonus[in.Vertical],
		Penalty:       capped(text, s.cfg.Irrelevant),
	}
	for _, src := range s.cfg.ReputableSources {
		if strings.EqualFold(strings.TrimSpace(src), strings.TrimSpace(in.SourceName)) {
			b.SourceBonus = s.cfg.SourceBonus
			break
		}
	}
	b.Total = content.ClampScore(b.Base + b.SourceBonus + b.Martech + b.Adtech + b.CRM +
		b.Enterprise + b.VerticalBonus - b.Penalty)
	return b
}

func capped(text string, c taxonomy.Category) int {
	return min(textutil.CountMatches(text, c.Terms)*c.PerMatch, c.Cap)
}

// subScores mirror the heuristic categories.
type subScores struct {
	Martech    *float64 `json:"martech"`
	Adtech     *float64 `json:"adtech"`
	CRM        *float64 `json:"crm"`
	Enterprise *float64 `json:"enterprise"`
}

// ScoreWithModel asks the model for four 0-25 sub-scores and sums them. Any
// failure, missing or out-of-range value falls back to the heuristic.
func (s *Scorer) ScoreWithModel(ctx context.Context, in Input) (int, Method) {
	if s.gen == nil {
		return s.Score(in), MethodHeuristic
	}

	req := llm.Request{
		System: "You rate business news for B2B marketing and advertising professionals. " +
			"Score each area from 0 to 25: martech relevance (marketing technology, automation, analytics), " +
			"adtech relevance (programmatic, ad platforms, retail media, measurement), " +
			"CRM/lifecycle relevance (customer data, loyalty, retention, personalization) and " +
			"enterprise-decision relevance (budgets, launches, acquisitions, executive moves). " +
			`Respond with JSON only: {"martech": n, "adtech": n, "crm": n, "enterprise": n}.`,
		Prompt: fmt.Sprintf("Title: %s\nSource: %s\nVertical: %s\nSummary: %s",
			in.Title, in.SourceName, in.Vertical, llm.Clip(in.Summary, 1500)),
		Temperature: 0.1,
		MaxTokens:   80,
	}

	total, err := s.modelScore(ctx, req)
	if err != nil {
		s.log.Debug("model scoring fell back to heuristic", "title", in.Title, "error", err)
		return s.Score(in), MethodHeuristic
	}
	return total, MethodModel
}

func (s *Scorer) modelScore(ctx context.Context, req llm.Request) (int, error) {
	reply, err := s.gen.Generate(ctx, req)
	if err != nil {
		return 0, err
	}
	var sub subScores
	if err := llm.DecodeJSON(reply, &sub); err != nil {
		return 0, err
	}

	total := 0
	for name, v := range map[string]*float64{
		"martech":    sub.Martech,
		"adtech":     sub.Adtech,
		"crm":        sub.CRM,
		"enterprise": sub.Enterprise,
	} {
		if v == nil {
			return 0, fmt.Errorf("missing %s", name)
		}
		if math.IsNaN(*v) || *v < 0 || *v > subScoreMax {
			return 0, fmt.Errorf("%s out of range: %v", name, *v)
		}
		total += int(math.Round(*v))
	}
	return content.ClampScore(total), nil
}
