package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/llm"
	"github.com/deusflow/signalfeed/internal/llm/llmtest"
	"github.com/deusflow/signalfeed/internal/logger"
	"github.com/deusflow/signalfeed/internal/ratelimit"
	"github.com/deusflow/signalfeed/internal/retry"
	"github.com/deusflow/signalfeed/internal/taxonomy"
)

const acmeSource = "Acme Launches AI Ad Platform\nAcme unveiled an ad platform for brands."

func validator() *Validator {
	return NewValidator(taxonomy.Default().GenericPhrases)
}

func TestIsSpecificRejectsEveryGenericPhrase(t *testing.T) {
	v := validator()
	base := "Acme built its platform so brands can buy ads directly. "
	require.True(t, v.IsSpecific(acmeSource, base))

	for _, phrase := range taxonomy.Default().GenericPhrases {
		t.Run(phrase, func(t *testing.T) {
			assert.False(t, v.IsSpecific(acmeSource, base+strings.ToUpper(phrase[:1])+phrase[1:]+"."))
		})
	}
}

func TestIsSpecificCurlyApostrophe(t *testing.T) {
	v := validator()
	assert.False(t, v.IsSpecific(acmeSource, "In today’s digital landscape Acme gives brands a platform."))
}

func TestIsSpecificSharedWords(t *testing.T) {
	v := validator()
	tests := []struct {
		name      string
		generated string
		want      bool
	}{
		{"two shared words", "Acme now sells to brands.", true},
		{"one shared word", "Acme grows.", false},
		{"short words do not count", "AI ad for an AI ad.", false},
		{"case and punctuation ignored", "ACME's PLATFORM, finally.", true},
		{"empty", "  ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, v.IsSpecific(acmeSource, tt.generated))
		})
	}
}

func newEnricher(primary, alternate *llmtest.Generator) *Enricher {
	var alt llm.Generator
	if alternate != nil {
		alt = alternate
	}
	return New(primary, alt, validator(), retry.RetryConfig{MaxAttempts: 3}, logger.Discard())
}

var acme = Input{
	Title:      "Acme Launches AI Ad Platform",
	Content:    "Acme unveiled an ad platform for brands.",
	SourceName: "AdTech Daily",
	Vertical:   content.VerticalTechMedia,
}

const goodReply = "```json\n{\"why_it_matters\": \"Acme's platform lets brands buy inventory without an agency.\", " +
	"\"talk_track\": \"Ask whether the Acme platform changes how your brands plan spend.\"}\n```"

func TestEnrichFirstAttempt(t *testing.T) {
	primary := llmtest.New("primary", goodReply)
	out, err := newEnricher(primary, nil).Enrich(context.Background(), acme)
	require.NoError(t, err)
	assert.Contains(t, out.WhyItMatters, "Acme")
	assert.NotEmpty(t, out.TalkTrack)

	calls := primary.Calls()
	require.Len(t, calls, 1)
	assert.NotEmpty(t, calls[0].System)
	assert.Contains(t, calls[0].Prompt, "Technology & Media")
}

func TestEnrichEscalates(t *testing.T) {
	primary := llmtest.New("primary",
		`{"why_it_matters": "This is a game-changer for Acme brands.", "talk_track": "Acme platform."}`,
		"Sure! Here is the JSON you asked for.",
	)
	alternate := llmtest.New("alternate", goodReply)

	out, err := newEnricher(primary, alternate).Enrich(context.Background(), acme)
	require.NoError(t, err)
	assert.Contains(t, out.TalkTrack, "Acme")
	assert.Len(t, primary.Calls(), 2)
	assert.Len(t, alternate.Calls(), 1)
	assert.Empty(t, alternate.Calls()[0].System, "alternate uses the simplified prompt")
}

func TestEnrichHardFailure(t *testing.T) {
	primary := llmtest.New("primary").Queue(
		llmtest.Reply{Text: `{"why_it_matters": "Stay ahead of the curve.", "talk_track": "Acme brands."}`},
		llmtest.Reply{Err: ratelimit.ErrBudgetExhausted},
	)
	alternate := llmtest.New("alternate", `{"why_it_matters": "Interesting news.", "talk_track": ""}`)

	out, err := newEnricher(primary, alternate).Enrich(context.Background(), acme)
	assert.ErrorIs(t, err, ErrNotSpecific)
	assert.ErrorIs(t, err, retry.ErrExhausted)
	assert.ErrorIs(t, err, ratelimit.ErrBudgetExhausted)
	assert.Equal(t, Enrichment{}, out)
}

func TestEnrichGivesUpOnStuckProvider(t *testing.T) {
	stuck := llmtest.New("primary")
	stuck.Hang = true
	gen := llm.NewGuarded(stuck, llm.GuardOptions{Timeout: 20 * time.Millisecond, Log: logger.Discard()})
	e := New(gen, nil, validator(), retry.RetryConfig{MaxAttempts: 3}, logger.Discard())

	start := time.Now()
	_, err := e.Enrich(context.Background(), acme)
	assert.ErrorIs(t, err, ErrNotSpecific)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Len(t, stuck.Calls(), 3)
}

func TestEnrichCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := newEnricher(llmtest.New("primary", goodReply), nil).Enrich(ctx, acme)
	assert.True(t, errors.Is(err, context.Canceled))
}

var metric = Input{
	Title:       "US digital ad spend hits $74.8B",
	Content:     "Digital advertising spend in the US reached $74.8B in the first half.",
	SourceName:  "IAB",
	Vertical:    content.VerticalTechMedia,
	MetricValue: "$74.8B",
}

func TestEnrichMetricRequiresValueInBothFields(t *testing.T) {
	primary := llmtest.New("primary",
		`{"why_it_matters": "Digital spend at $74.8B shows budgets moving online.", "talk_track": "Digital advertising spend keeps climbing."}`,
		`{"why_it_matters": "Digital spend at $74.8B shows budgets moving online.", "talk_track": "At $74.8B, digital advertising is where your buyers are."}`,
	)

	out, err := newEnricher(primary, nil).EnrichMetric(context.Background(), metric)
	require.NoError(t, err)
	assert.Contains(t, out.WhyItMatters, "$74.8B")
	assert.Contains(t, out.TalkTrack, "$74.8B")

	calls := primary.Calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Prompt, "Example", "second attempt is example-anchored")
}

func TestEnrichMetricGivesUp(t *testing.T) {
	reply := `{"why_it_matters": "Digital advertising spend is growing.", "talk_track": "Digital advertising spend matters."}`
	primary := llmtest.New("primary", reply, reply, reply)

	_, err := newEnricher(primary, nil).EnrichMetric(context.Background(), metric)
	assert.ErrorIs(t, err, ErrNotSpecific)
	assert.Len(t, primary.Calls(), 3)
}

func TestEnrichMetricWithoutValue(t *testing.T) {
	in := metric
	in.MetricValue = ""
	_, err := newEnricher(llmtest.New("primary"), nil).EnrichMetric(context.Background(), in)
	assert.ErrorIs(t, err, ErrNotSpecific)
}

func TestParseEnrichmentCamelCase(t *testing.T) {
	out, err := parseEnrichment(`Here you go: {"whyItMatters": "a", "talkTrack": "b"}`)
	require.NoError(t, err)
	assert.Equal(t, Enrichment{WhyItMatters: "a", TalkTrack: "b"}, out)
}
