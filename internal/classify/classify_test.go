package classify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/llm"
	"github.com/deusflow/signalfeed/internal/llm/llmtest"
	"github.com/deusflow/signalfeed/internal/logger"
	"github.com/deusflow/signalfeed/internal/retry"
	"github.com/deusflow/signalfeed/internal/taxonomy"
)

func TestClassify(t *testing.T) {
	c := New(taxonomy.Default())

	tests := []struct {
		name   string
		title  string
		body   string
		source string
		want   content.Vertical
	}{
		{"topics pick tech", "Acme Launches AI Ad Platform", "Acme unveiled an ad platform for brands.", "", content.VerticalTechMedia},
		{"entity outweighs topics", "Walmart expands retail media", "", "", content.VerticalConsumer},
		{"insurance entity", "AIG names new CMO", "", "", content.VerticalInsurance},
		{"word boundary", "Synergistic wins for regional bank", "", "", content.VerticalFinancial},
		{"tie goes to fallback", "Hotel bank merger", "", "", content.VerticalTechMedia},
		{"generic marketing goes to fallback", "Marketers rethink brand budgets", "", "", content.VerticalTechMedia},
		{"nothing matches", "Local bakery opens second shop", "", "", content.VerticalOther},
		{"source hint breaks a tie", "Hotel bank merger", "", "Hospitality Weekly", content.VerticalTravel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Classify(tt.title, tt.body, tt.source))
		})
	}
}

func TestScoresWeights(t *testing.T) {
	c := New(taxonomy.Default())
	scores := c.Scores("Google adds AI to streaming", "", "")
	assert.Equal(t, 3+1+1, scores[content.VerticalTechMedia])
}

func TestClassifyIsDeterministic(t *testing.T) {
	c := New(taxonomy.Default())
	first := c.Classify("Visa and Marriott partner on travel rewards", "", "")
	for i := 0; i < 50; i++ {
		assert.Equal(t, first, c.Classify("Visa and Marriott partner on travel rewards", "", ""))
	}
}

func newModel(primary *llmtest.Generator, alternate llm.Generator) *ModelClassifier {
	return NewModelClassifier(primary, alternate, retry.RetryConfig{MaxAttempts: 3}, logger.Discard())
}

func TestReclassifyFirstStrategy(t *testing.T) {
	primary := llmtest.New("primary", "```json\n{\"vertical\": \"Healthcare\"}\n```")
	v, err := newModel(primary, nil).Reclassify(context.Background(), "CVS expands clinics", "")
	require.NoError(t, err)
	assert.Equal(t, content.VerticalHealthcare, v)
	assert.Len(t, primary.Calls(), 1)
}

func TestReclassifyEscalatesToAlternate(t *testing.T) {
	primary := llmtest.New("primary", "I think it's about crypto", "Blockchain")
	alternate := llmtest.New("alternate", "Financial Services")

	v, err := newModel(primary, alternate).Reclassify(context.Background(), "Stripe adds stablecoins", "")
	require.NoError(t, err)
	assert.Equal(t, content.VerticalFinancial, v)
	assert.Len(t, primary.Calls(), 2)
	assert.Len(t, alternate.Calls(), 1)
}

func TestReclassifyUnresolved(t *testing.T) {
	primary := llmtest.New("primary").Queue(
		llmtest.Reply{Err: errors.New("503")},
		llmtest.Reply{Text: "Space"},
	)
	alternate := llmtest.New("alternate", "Unknown")

	_, err := newModel(primary, alternate).Reclassify(context.Background(), "Rocket lands", "")
	assert.ErrorIs(t, err, ErrUnresolved)
}

func TestParseLabel(t *testing.T) {
	v, err := parseLabel(`"Technology and Media".`)
	require.NoError(t, err)
	assert.Equal(t, content.VerticalTechMedia, v)

	_, err = parseLabel(`{"vertical": "Gaming"}`)
	assert.Error(t, err)
}
