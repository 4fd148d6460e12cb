package textutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "acme launches ai ad platform", Normalize("  Acme Launches AI Ad-Platform!! "))
	assert.Equal(t, "", Normalize("!!! ..."))
	assert.Equal(t, "74 8b revenue", Normalize("$74.8B revenue"))
}

func TestDistanceAndSimilarity(t *testing.T) {
	assert.Equal(t, 3, Distance("kitten", "sitting"))
	assert.Equal(t, 0, Distance("same", "same"))
	assert.Equal(t, 4, Distance("", "four"))
	assert.Equal(t, 1.0, Similarity("", ""))
	assert.InDelta(t, 0.8, Similarity("abcdefghij", "abcdefghXY"), 1e-9)
	assert.InDelta(t, 0.9, Similarity("abcdefghij", "abcdefghiX"), 1e-9)
}

func TestContainsWordBoundaries(t *testing.T) {
	assert.False(t, ContainsWord("a synergistic partnership", "aig"))
	assert.True(t, ContainsWord("AIG reports earnings", "aig"))
	assert.True(t, ContainsWord("acme launches ai ad platform", "ad platform"))
	assert.False(t, ContainsWord("he said nothing", "ai"))
}

func TestContainsAnyShortTokens(t *testing.T) {
	assert.False(t, ContainsAny("He said the market was flat", []string{"ai"}))
	assert.True(t, ContainsAny("New AI tools", []string{"ai"}))
	assert.True(t, ContainsAny("Programmatic advertising grows", []string{"programmatic"}))
	assert.Equal(t, 2, CountMatches("AI powered CRM for retail", []string{"ai", "crm", "loyalty"}))
}

func TestSharedWords(t *testing.T) {
	src := "Acme launches an AI ad platform for retailers"
	gen := "Acme's platform gives retailers new targeting"
	assert.Equal(t, 3, SharedWords(src, gen, 4)) // acme, platform, retailers
}

func TestPrefixRunes(t *testing.T) {
	assert.Equal(t, "héll", Prefix("héllo", 4))
	assert.Equal(t, "hi", Prefix("hi", 10))
}
