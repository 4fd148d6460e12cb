package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("STORE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.FetchBatchSize)
	assert.Equal(t, time.Second, cfg.FetchBatchPause)
	assert.Equal(t, 10*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 10, cfg.MaxItemsPerSource)
	assert.Equal(t, 6*time.Hour, cfg.DateRepairWindow)
	assert.Equal(t, 3, cfg.EnrichAttempts)
	assert.Equal(t, "memory", cfg.Store)
	assert.Equal(t, 72*time.Hour, cfg.CacheTTL())
	assert.Equal(t, 30*time.Second, cfg.AITimeout)
	assert.Zero(t, cfg.AIBudgetWindow)
	assert.Empty(t, cfg.AIProviderLimits)
}

func TestLoadAISettings(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("AI_TIMEOUT", "45s")
	t.Setenv("AI_BUDGET_WINDOW", "24h")
	t.Setenv("AI_PROVIDER_LIMITS", "Gemini=150, openai=50,")
	t.Setenv("OPENAI_BASE_URL", "http://localhost:11434/v1")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 45*time.Second, cfg.AITimeout)
	assert.Equal(t, 24*time.Hour, cfg.AIBudgetWindow)
	assert.Equal(t, map[string]int{"gemini": 150, "openai": 50}, cfg.AIProviderLimits)
	assert.Equal(t, "http://localhost:11434/v1", cfg.OpenAIBaseURL)
}

func TestLoadRejectsBadProviderLimits(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	for _, v := range []string{"gemini", "gemini=lots", "=5", "openai=-1"} {
		t.Setenv("AI_PROVIDER_LIMITS", v)
		_, err := Load()
		assert.ErrorContains(t, err, "AI_PROVIDER_LIMITS", v)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("FETCH_TIMEOUT", "3s")
	t.Setenv("FETCH_BATCH_PAUSE", "2")
	t.Setenv("SCORE_WITH_MODEL", "true")
	t.Setenv("MAX_ITEMS_PER_SOURCE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 2*time.Second, cfg.FetchBatchPause)
	assert.True(t, cfg.ScoreWithModel)
	assert.Equal(t, 10, cfg.MaxItemsPerSource, "invalid value keeps default")
}

func TestValidateMissingCredential(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissingCredential)
}

func TestValidatePostgresNeedsDSN(t *testing.T) {
	cfg := &Config{
		GeminiAPIKey:      "k",
		Store:             "postgres",
		FetchBatchSize:    5,
		MaxItemsPerSource: 10,
		EnrichAttempts:    3,
		AITimeout:         time.Second,
	}
	assert.ErrorIs(t, cfg.Validate(), ErrMissingCredential)

	cfg.DatabaseURL = "postgres://localhost/signalfeed"
	assert.NoError(t, cfg.Validate())

	cfg.Store = "sqlite"
	assert.Error(t, cfg.Validate())
}

func TestValidateTelegramPair(t *testing.T) {
	cfg := &Config{
		OpenAIAPIKey:      "k",
		Store:             "memory",
		FetchBatchSize:    5,
		MaxItemsPerSource: 10,
		EnrichAttempts:    3,
		TelegramToken:     "token",
	}
	assert.Error(t, cfg.Validate())
}
