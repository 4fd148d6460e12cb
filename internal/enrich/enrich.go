// Package enrich writes the "why it matters" and "talk track" fields. Output
// that is not specific to its source is rejected; there is no fallback text.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/llm"
	"github.com/deusflow/signalfeed/internal/retry"
)

// ErrNotSpecific is returned when every strategy produced unusable text.
var ErrNotSpecific = errors.New("generated text is not specific to the source")

const maxContextChars = 3000

type Input struct {
	Title       string
	Content     string
	SourceName  string
	Vertical    content.Vertical
	MetricValue string // metrics only, e.g. "$74.8B"
}

func (in Input) source() string {
	return in.Title + "\n" + in.Content
}

type Enrichment struct {
	WhyItMatters string
	TalkTrack    string
}

func (e Enrichment) text() string {
	return e.WhyItMatters + "\n" + e.TalkTrack
}

type Enricher struct {
	primary   llm.Generator
	alternate llm.Generator
	validator *Validator
	retry     retry.RetryConfig
	log       *slog.Logger
}

// New builds an enricher. alternate may be nil, in which case the last
// strategy reuses primary.
func New(primary, alternate llm.Generator, validator *Validator, cfg retry.RetryConfig, log *slog.Logger) *Enricher {
	if alternate == nil {
		alternate = primary
	}
	if log == nil {
		log = slog.Default()
	}
	return &Enricher{primary: primary, alternate: alternate, validator: validator, retry: cfg, log: log}
}

const systemPrompt = `You write for account executives who sell marketing and advertising solutions to enterprise brands.
For the news item you are given, write two fields:
- why_it_matters: 1-2 sentences on what this changes for marketers, advertisers or customer teams in the named vertical.
- talk_track: 1-2 sentences a seller could say to a client, referencing the companies, products and numbers in the item.
Rules: name the specific companies, products and figures from the item. Never use filler such as "in today's fast-paced world", "game-changer" or "stay ahead of the curve".
Respond with JSON only: {"why_it_matters": "...", "talk_track": "..."}`

// Enrich generates both fields for an article.
func (e *Enricher) Enrich(ctx context.Context, in Input) (Enrichment, error) {
	body := llm.Clip(in.Content, maxContextChars)

	detailed := llm.Request{
		System: systemPrompt,
		Prompt: fmt.Sprintf("Title: %s\nSource: %s\nVertical: %s\n\nContent:\n%s",
			in.Title, in.SourceName, in.Vertical, body),
		Temperature: 0.4,
		MaxTokens:   400,
	}
	simple := llm.Request{
		Prompt: fmt.Sprintf("News: %s. %s\n\n"+
			"In JSON with keys why_it_matters and talk_track, write one sentence each on why this matters "+
			"to marketers and what a seller should say about it. Mention the companies by name.",
			in.Title, llm.Clip(body, 800)),
		Temperature: 0.3,
		MaxTokens:   250,
	}

	validate := func(out Enrichment) error {
		return e.validator.Check(in.source(), out.text())
	}
	return e.run(ctx, in, []retry.Strategy[Enrichment]{
		{Name: "detailed", Run: e.ask(e.primary, detailed)},
		{Name: "simplified", Run: e.ask(e.primary, simple)},
		{Name: "alternate", Run: e.ask(e.alternate, simple)},
	}, validate)
}

// EnrichMetric generates both fields for a metric. The formatted value must be
// cited in each field; when it is not, a stricter prompt anchored on an example
// is tried before giving up.
func (e *Enricher) EnrichMetric(ctx context.Context, in Input) (Enrichment, error) {
	value := strings.TrimSpace(in.MetricValue)
	if value == "" {
		return Enrichment{}, fmt.Errorf("%w: metric without value", ErrNotSpecific)
	}
	body := llm.Clip(in.Content, maxContextChars)

	detailed := llm.Request{
		System: systemPrompt + "\nThis item is a statistic. Both fields must quote the exact figure " + value + ".",
		Prompt: fmt.Sprintf("Statistic: %s\nValue: %s\nSource: %s\nVertical: %s\n\nContext:\n%s",
			in.Title, value, in.SourceName, in.Vertical, body),
		Temperature: 0.3,
		MaxTokens:   400,
	}
	strict := llm.Request{
		System: systemPrompt,
		Prompt: fmt.Sprintf("Statistic: %s\n\n"+
			"Both fields MUST contain the exact text %q, written exactly like that.\n"+
			"Example for the statistic \"US retail media spend reaches $58.8B\":\n"+
			`{"why_it_matters": "Retail media spend of $58.8B means retailers now compete with search for brand budgets.", `+
			`"talk_track": "With $58.8B flowing into retail media, ask how much of your client's search budget could move to retailer networks."}`+
			"\n\nNow write the JSON for the statistic above.", in.Title, value),
		Temperature: 0.2,
		MaxTokens:   300,
	}

	validate := func(out Enrichment) error {
		return e.validator.checkMetric(in.source(), value, out)
	}
	return e.run(ctx, in, []retry.Strategy[Enrichment]{
		{Name: "detailed", Run: e.ask(e.primary, detailed)},
		{Name: "strict", Run: e.ask(e.primary, strict)},
		{Name: "alternate", Run: e.ask(e.alternate, strict)},
	}, validate)
}

func (e *Enricher) run(ctx context.Context, in Input, strategies []retry.Strategy[Enrichment], validate func(Enrichment) error) (Enrichment, error) {
	out, err := retry.Escalate(ctx, e.retry, strategies, validate)
	if err != nil {
		if ctx.Err() != nil {
			return Enrichment{}, ctx.Err()
		}
		e.log.Warn("enrichment rejected", "title", in.Title, "source", in.SourceName, "error", err)
		return Enrichment{}, fmt.Errorf("%w: %w", ErrNotSpecific, err)
	}
	return out, nil
}

func (e *Enricher) ask(gen llm.Generator, req llm.Request) func(context.Context) (Enrichment, error) {
	return func(ctx context.Context) (Enrichment, error) {
		reply, err := gen.Generate(ctx, req)
		if err != nil {
			return Enrichment{}, err
		}
		return parseEnrichment(reply)
	}
}

// parseEnrichment accepts snake_case or camelCase keys.
func parseEnrichment(reply string) (Enrichment, error) {
	var raw struct {
		Why       string `json:"why_it_matters"`
		WhyCamel  string `json:"whyItMatters"`
		Talk      string `json:"talk_track"`
		TalkCamel string `json:"talkTrack"`
	}
	if err := llm.DecodeJSON(reply, &raw); err != nil {
		return Enrichment{}, err
	}
	out := Enrichment{
		WhyItMatters: strings.TrimSpace(firstNonEmpty(raw.Why, raw.WhyCamel)),
		TalkTrack:    strings.TrimSpace(firstNonEmpty(raw.Talk, raw.TalkCamel)),
	}
	if out.WhyItMatters == "" || out.TalkTrack == "" {
		return Enrichment{}, fmt.Errorf("%w: missing field", llm.ErrEmptyResponse)
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
