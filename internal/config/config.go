package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingCredential is returned by Validate when a required secret is absent.
var ErrMissingCredential = errors.New("missing credential")

type Config struct {
	// Sources and taxonomy
	FeedsConfigPath     string
	TaxonomyPath        string // empty = built-in defaults
	MaxItemsPerSource   int
	FetchTimeout        time.Duration
	FetchBatchSize      int
	FetchBatchPause     time.Duration
	DateRepairWindow    time.Duration
	PipelineConcurrency int

	// Scraper settings
	ScrapeMinSnippet  int // snippets shorter than this get the full article scraped
	ScrapeConcurrency int

	// Generation
	GeminiAPIKey     string
	GeminiModel      string
	OpenAIAPIKey     string
	OpenAIModel      string // alternate, cheaper model
	OpenAIBaseURL    string // OpenAI-compatible endpoint; empty = api.openai.com
	AnthropicAPIKey  string
	AnthropicModel   string
	MaxAIRequests    int // per run, 0 = unlimited
	AIProviderLimits map[string]int
	AIBudgetWindow   time.Duration // 0 = budget resets every run
	AIMinInterval    time.Duration
	AITimeout        time.Duration
	EnrichAttempts   int
	EnrichRetryDelay time.Duration
	ScoreWithModel   bool

	// Storage
	Store         string // "memory" or "postgres"
	DatabaseURL   string
	DataFilePath  string // JSON snapshot for the memory store
	RetentionDays int

	// Cache
	RedisAddr     string // empty = in-memory cache
	CacheTTLHours int

	// Rotation
	DailyArticleCount int
	WeeklyMetricCount int
	ArticleLookback   time.Duration
	MetricLookback    time.Duration
	MetricCooldown    time.Duration
	ArticleExpiry     time.Duration
	MetricExpiry      time.Duration

	// Delivery
	NATSURL        string
	TelegramToken  string
	TelegramChatID string

	// Scheduling and monitoring
	IngestSchedule       string
	RotateSchedule       string // articles, daily
	MetricRotateSchedule string // metrics, weekly
	ArchiveSchedule      string
	MonitoringPort       int

	// App settings
	Debug     bool
	LogFormat string
}

func Load() (*Config, error) {
	// .env is optional; real environment wins.
	_ = godotenv.Load()

	cfg := &Config{
		FeedsConfigPath:     getEnvOrDefault("FEEDS_CONFIG_PATH", "configs/feeds.yaml"),
		TaxonomyPath:        os.Getenv("TAXONOMY_PATH"),
		MaxItemsPerSource:   getEnvIntOrDefault("MAX_ITEMS_PER_SOURCE", 10),
		FetchTimeout:        getEnvDurationOrDefault("FETCH_TIMEOUT", 10*time.Second),
		FetchBatchSize:      getEnvIntOrDefault("FETCH_BATCH_SIZE", 5),
		FetchBatchPause:     getEnvDurationOrDefault("FETCH_BATCH_PAUSE", time.Second),
		DateRepairWindow:    getEnvDurationOrDefault("DATE_REPAIR_WINDOW", 6*time.Hour),
		PipelineConcurrency: getEnvIntOrDefault("PIPELINE_CONCURRENCY", 4),

		ScrapeMinSnippet:  getEnvIntOrDefault("SCRAPE_MIN_SNIPPET", 200),
		ScrapeConcurrency: getEnvIntOrDefault("SCRAPE_CONCURRENCY", 4),

		GeminiAPIKey:     os.Getenv("GEMINI_API_KEY"),
		GeminiModel:      getEnvOrDefault("GEMINI_MODEL", "gemini-2.5-flash"),
		OpenAIAPIKey:     os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:      getEnvOrDefault("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL:    os.Getenv("OPENAI_BASE_URL"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   getEnvOrDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		MaxAIRequests:    getEnvIntOrDefault("MAX_AI_REQUESTS", 200),
		AIBudgetWindow:   getEnvDurationOrDefault("AI_BUDGET_WINDOW", 0),
		AIMinInterval:    getEnvDurationOrDefault("AI_MIN_INTERVAL", 500*time.Millisecond),
		AITimeout:        getEnvDurationOrDefault("AI_TIMEOUT", 30*time.Second),
		EnrichAttempts:   getEnvIntOrDefault("ENRICH_ATTEMPTS", 3),
		EnrichRetryDelay: getEnvDurationOrDefault("ENRICH_RETRY_DELAY", time.Second),
		ScoreWithModel:   getEnvBool("SCORE_WITH_MODEL"),

		Store:         strings.ToLower(getEnvOrDefault("STORE", "memory")),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DataFilePath:  getEnvOrDefault("DATA_FILE_PATH", "content.json"),
		RetentionDays: getEnvIntOrDefault("RETENTION_DAYS", 90),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		CacheTTLHours: getEnvIntOrDefault("CACHE_TTL_HOURS", 72),

		DailyArticleCount: getEnvIntOrDefault("DAILY_ARTICLE_COUNT", 8),
		WeeklyMetricCount: getEnvIntOrDefault("WEEKLY_METRIC_COUNT", 5),
		ArticleLookback:   getEnvDurationOrDefault("ARTICLE_LOOKBACK", 24*time.Hour),
		MetricLookback:    getEnvDurationOrDefault("METRIC_LOOKBACK", 90*24*time.Hour),
		MetricCooldown:    getEnvDurationOrDefault("METRIC_COOLDOWN", 3*24*time.Hour),
		ArticleExpiry:     getEnvDurationOrDefault("ARTICLE_EXPIRY", 7*24*time.Hour),
		MetricExpiry:      getEnvDurationOrDefault("METRIC_EXPIRY", 30*24*time.Hour),

		NATSURL:        os.Getenv("NATS_URL"),
		TelegramToken:  os.Getenv("TELEGRAM_TOKEN"),
		TelegramChatID: os.Getenv("TELEGRAM_CHAT_ID"),

		IngestSchedule:       getEnvOrDefault("INGEST_SCHEDULE", "0 */4 * * *"),
		RotateSchedule:       getEnvOrDefault("ROTATE_SCHEDULE", "0 6 * * *"),
		MetricRotateSchedule: getEnvOrDefault("METRIC_ROTATE_SCHEDULE", "0 6 * * 1"),
		ArchiveSchedule:      getEnvOrDefault("ARCHIVE_SCHEDULE", "30 * * * *"),
		MonitoringPort:       getEnvIntOrDefault("MONITORING_PORT", 8080),

		Debug:     getEnvBool("DEBUG"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}

	limits, err := parseLimits(os.Getenv("AI_PROVIDER_LIMITS"))
	if err != nil {
		return nil, err
	}
	cfg.AIProviderLimits = limits

	return cfg, cfg.Validate()
}

// parseLimits reads "gemini=150,openai=50" into a provider to cap map.
func parseLimits(value string) (map[string]int, error) {
	limits := make(map[string]int)
	for _, pair := range strings.Split(value, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		name, n, ok := strings.Cut(pair, "=")
		limit, err := strconv.Atoi(strings.TrimSpace(n))
		if !ok || err != nil || limit < 0 || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("AI_PROVIDER_LIMITS: invalid entry %q, want provider=count", pair)
		}
		limits[strings.ToLower(strings.TrimSpace(name))] = limit
	}
	return limits, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDurationOrDefault accepts Go durations ("90s") or plain seconds ("90").
func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func getEnvBool(key string) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	return err == nil && v
}

func (c *Config) Validate() error {
	if c.GeminiAPIKey == "" && c.OpenAIAPIKey == "" && c.AnthropicAPIKey == "" {
		return fmt.Errorf("%w: one of GEMINI_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY is required", ErrMissingCredential)
	}
	switch c.Store {
	case "memory":
	case "postgres":
		if c.DatabaseURL == "" {
			return fmt.Errorf("%w: DATABASE_URL is required when STORE=postgres", ErrMissingCredential)
		}
	default:
		return fmt.Errorf("STORE must be 'memory' or 'postgres', got %q", c.Store)
	}
	if (c.TelegramToken == "") != (c.TelegramChatID == "") {
		return fmt.Errorf("TELEGRAM_TOKEN and TELEGRAM_CHAT_ID must be set together")
	}
	if c.FetchBatchSize <= 0 {
		return fmt.Errorf("FETCH_BATCH_SIZE must be positive")
	}
	if c.MaxItemsPerSource <= 0 {
		return fmt.Errorf("MAX_ITEMS_PER_SOURCE must be positive")
	}
	if c.AITimeout <= 0 {
		return fmt.Errorf("AI_TIMEOUT must be positive")
	}
	if c.EnrichAttempts <= 0 {
		return fmt.Errorf("ENRICH_ATTEMPTS must be positive")
	}
	return nil
}

// CacheTTL is the generation cache lifetime.
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLHours) * time.Hour
}
