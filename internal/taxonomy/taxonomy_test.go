package taxonomy

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/signalfeed/internal/content"
)

func TestDefaultIsValid(t *testing.T) {
	tax := Default()
	require.NoError(t, tax.Validate())
	assert.Equal(t, content.VerticalTechMedia, tax.Classification.Fallback)
	assert.NotContains(t, tax.Classification.Verticals, content.VerticalOther)
}

func TestDefaultReturnsIndependentCopies(t *testing.T) {
	a := Default()
	a.Relevance.Exclude[0] = "changed"
	b := Default()
	assert.Equal(t, "horoscope", b.Relevance.Exclude[0])
}

func TestLoadOverlaysFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
relevance:
  exclude: ["sponsored"]
  min_text_length: 120
scoring:
  base: 25
`), 0o644))

	tax, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"sponsored"}, tax.Relevance.Exclude)
	assert.Equal(t, 120, tax.Relevance.MinTextLength)
	assert.Equal(t, 25, tax.Scoring.Base)
	assert.NotEmpty(t, tax.Relevance.Include, "untouched sections keep defaults")
}

func TestLoadRejectsUnknownVertical(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "taxonomy.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
classification:
  fallback: "Crypto"
`), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
