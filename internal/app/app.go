// Package app wires configuration into the pipeline, rotation and
// maintenance components and exposes one method per CLI command.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/deusflow/signalfeed/internal/cache"
	"github.com/deusflow/signalfeed/internal/classify"
	"github.com/deusflow/signalfeed/internal/config"
	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/dedup"
	"github.com/deusflow/signalfeed/internal/enrich"
	"github.com/deusflow/signalfeed/internal/events"
	"github.com/deusflow/signalfeed/internal/llm"
	"github.com/deusflow/signalfeed/internal/logger"
	"github.com/deusflow/signalfeed/internal/maintenance"
	"github.com/deusflow/signalfeed/internal/metrics"
	"github.com/deusflow/signalfeed/internal/pipeline"
	"github.com/deusflow/signalfeed/internal/ratelimit"
	"github.com/deusflow/signalfeed/internal/relevance"
	"github.com/deusflow/signalfeed/internal/retry"
	"github.com/deusflow/signalfeed/internal/rotation"
	"github.com/deusflow/signalfeed/internal/rss"
	"github.com/deusflow/signalfeed/internal/scoring"
	"github.com/deusflow/signalfeed/internal/scraper"
	"github.com/deusflow/signalfeed/internal/storage"
	"github.com/deusflow/signalfeed/internal/taxonomy"
	"github.com/deusflow/signalfeed/internal/telegram"
)

type App struct {
	cfg     *config.Config
	log     *slog.Logger
	store   storage.Store
	memory  *storage.MemoryStore   // nil with postgres
	pg      *storage.PostgresStore // nil with memory
	metrics *metrics.Metrics
	limiter *ratelimit.AIRateLimiter

	pipeline     *pipeline.Pipeline
	rotator      *rotation.Rotator
	cleaner      *maintenance.Cleaner
	reclassifier *classify.ModelClassifier
	notifier     *telegram.Notifier

	closers []func() error
}

// New builds every component from cfg. Call Close when done.
func New(ctx context.Context, cfg *config.Config, log *slog.Logger) (*App, error) {
	if log == nil {
		log = logger.Logger
	}
	a := &App{cfg: cfg, log: log, metrics: metrics.Global}

	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context) error {
	cfg := a.cfg

	tax, err := taxonomy.Load(cfg.TaxonomyPath)
	if err != nil {
		return err
	}

	if err := a.openStore(ctx); err != nil {
		return err
	}

	genCache, err := a.openCache(ctx)
	if err != nil {
		return err
	}

	a.limiter = ratelimit.NewAIRateLimiter(cfg.AIProviderLimits, cfg.MaxAIRequests, cfg.AIBudgetWindow, logger.Component("ratelimit"))
	pacer := ratelimit.NewPacer(cfg.AIMinInterval)

	primary, alternate, err := a.openGenerators(ctx)
	if err != nil {
		return err
	}
	guard := func(g llm.Generator) llm.Generator {
		if g == nil {
			return nil
		}
		return llm.NewGuarded(g, llm.GuardOptions{
			Cache:   genCache,
			TTL:     cfg.CacheTTL(),
			Limiter: a.limiter,
			Pacer:   pacer,
			Timeout: cfg.AITimeout,
			Log:     logger.Component("llm"),
		})
	}
	primary, alternate = guard(primary), guard(alternate)

	attempts := retry.RetryConfig{MaxAttempts: cfg.EnrichAttempts, Delay: cfg.EnrichRetryDelay, Backoff: true}
	checker := dedup.NewChecker(a.store, dedup.DefaultThresholds(), logger.Component("dedup"))

	a.pipeline = pipeline.New(pipeline.Deps{
		Fetcher: rss.NewFetcher(rss.Options{
			MaxItems:         cfg.MaxItemsPerSource,
			Timeout:          cfg.FetchTimeout,
			BatchSize:        cfg.FetchBatchSize,
			BatchPause:       cfg.FetchBatchPause,
			DateRepairWindow: cfg.DateRepairWindow,
		}, &http.Client{Timeout: cfg.FetchTimeout}, logger.Component("rss")),
		Scraper:    scraper.New(&http.Client{Timeout: 15 * time.Second}, cfg.ScrapeMinSnippet, cfg.ScrapeConcurrency, logger.Component("scraper")),
		Filter:     relevance.New(tax),
		Dedup:      checker,
		Classifier: classify.New(tax),
		Scorer:     scoring.New(tax, primary, logger.Component("scoring")),
		Enricher: enrich.New(primary, alternate, enrich.NewValidator(tax.GenericPhrases),
			attempts, logger.Component("enrich")),
	}, pipeline.Options{
		Concurrency:    cfg.PipelineConcurrency,
		ScoreWithModel: cfg.ScoreWithModel,
	}, logger.Component("pipeline"))

	a.reclassifier = classify.NewModelClassifier(primary, alternate, attempts, logger.Component("classify"))

	if cfg.TelegramToken != "" {
		a.notifier = telegram.New(cfg.TelegramToken, cfg.TelegramChatID, logger.Component("telegram"))
	}
	pub, err := a.openPublishers()
	if err != nil {
		return err
	}
	a.rotator = rotation.New(a.store, pub, rotation.Options{
		ArticleLookback: cfg.ArticleLookback,
		MetricLookback:  cfg.MetricLookback,
		MetricCooldown:  cfg.MetricCooldown,
		ArticleExpiry:   cfg.ArticleExpiry,
		MetricExpiry:    cfg.MetricExpiry,
	}, logger.Component("rotation"))

	a.cleaner = maintenance.NewCleaner(a.store, time.Duration(cfg.RetentionDays)*24*time.Hour, logger.Component("maintenance"))
	return nil
}

func (a *App) openStore(ctx context.Context) error {
	switch a.cfg.Store {
	case "postgres":
		pg, err := storage.NewPostgresStore(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, pg.Close)
		if err := pg.Migrate(ctx); err != nil {
			return err
		}
		a.pg, a.store = pg, pg
		a.log.Info("using postgres store")
	default:
		mem := storage.NewMemoryStore(a.cfg.DataFilePath)
		if err := mem.Load(); err != nil {
			return fmt.Errorf("load %s: %w", a.cfg.DataFilePath, err)
		}
		a.memory, a.store = mem, mem
		a.log.Info("using memory store", "file", a.cfg.DataFilePath, "records", mem.Len())
	}
	return nil
}

func (a *App) openCache(ctx context.Context) (cache.Store, error) {
	if a.cfg.RedisAddr == "" {
		c := cache.New()
		a.closers = append(a.closers, func() error { c.Close(); return nil })
		return c, nil
	}
	client, err := cache.DialRedis(ctx, a.cfg.RedisAddr)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, client.Close)
	a.log.Info("using redis generation cache", "addr", a.cfg.RedisAddr)
	return cache.NewRedisStore(client, ""), nil
}

// openGenerators picks Gemini, OpenAI and Anthropic in that order of
// preference. The second configured provider becomes the alternate.
func (a *App) openGenerators(ctx context.Context) (primary, alternate llm.Generator, err error) {
	var gens []llm.Generator
	if a.cfg.GeminiAPIKey != "" {
		g, err := llm.NewGemini(ctx, a.cfg.GeminiAPIKey, a.cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		a.closers = append(a.closers, func() error { g.Close(); return nil })
		gens = append(gens, g)
	}
	if a.cfg.OpenAIAPIKey != "" {
		if a.cfg.OpenAIBaseURL != "" {
			gens = append(gens, llm.NewOpenAIWithBaseURL(a.cfg.OpenAIAPIKey, a.cfg.OpenAIBaseURL, a.cfg.OpenAIModel))
		} else {
			gens = append(gens, llm.NewOpenAI(a.cfg.OpenAIAPIKey, a.cfg.OpenAIModel))
		}
	}
	if a.cfg.AnthropicAPIKey != "" {
		gens = append(gens, llm.NewAnthropic(a.cfg.AnthropicAPIKey, a.cfg.AnthropicModel))
	}
	if len(gens) == 0 {
		return nil, nil, fmt.Errorf("%w: no text generation provider", config.ErrMissingCredential)
	}
	primary = gens[0]
	if len(gens) > 1 {
		alternate = gens[1]
	}
	a.log.Info("text generation ready", "primary", primary.Name(), "providers", len(gens))
	return primary, alternate, nil
}

func (a *App) openPublishers() (rotation.Publisher, error) {
	var fan events.Fanout
	if a.cfg.NATSURL != "" {
		p, err := events.NewNATSPublisher(a.cfg.NATSURL, events.DefaultSubject, logger.Component("events"))
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p.Close)
		fan = append(fan, p)
	}
	if a.notifier != nil {
		fan = append(fan, a.notifier)
	}
	if len(fan) == 0 {
		return events.LogPublisher{Log: logger.Component("events")}, nil
	}
	return fan, nil
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}

// save snapshots the memory store; postgres needs nothing.
func (a *App) save() {
	if a.memory == nil {
		return
	}
	if err := a.memory.Save(); err != nil {
		a.log.Error("failed to save store", "error", err)
	}
}

// resetBudget starts a fresh AI budget for a run unless the limiter resets on
// its own window.
func (a *App) resetBudget() {
	if a.cfg.AIBudgetWindow == 0 {
		a.limiter.Reset()
	}
}

// RunIngest runs the pipeline over the configured feeds once.
func (a *App) RunIngest(ctx context.Context) (metrics.Summary, error) {
	sources, err := rss.LoadFeeds(a.cfg.FeedsConfigPath)
	if err != nil {
		a.metrics.SetError(err.Error())
		return metrics.Summary{}, err
	}

	a.resetBudget()
	sum, err := a.pipeline.Run(ctx, sources)
	a.metrics.RecordRun(sum)
	a.save()
	if err != nil {
		a.metrics.SetError(err.Error())
		return sum, err
	}
	a.metrics.SetLastRun()
	a.log.Info("ai usage", "stats", a.limiter.GetStats())

	if a.notifier != nil {
		if err := a.notifier.SendRunSummary(ctx, sum); err != nil {
			a.log.Warn("failed to send run summary", "error", err)
		}
	}
	return sum, nil
}

// Rotate publishes a new selection of kind. count <= 0 uses the configured size.
func (a *App) Rotate(ctx context.Context, kind content.Kind, count int) (rotation.Result, error) {
	if count <= 0 {
		count = a.cfg.DailyArticleCount
		if kind == content.KindMetric {
			count = a.cfg.WeeklyMetricCount
		}
	}
	res, err := a.rotator.Rotate(ctx, kind, count)
	a.metrics.AddPublished(len(res.Published))
	a.metrics.AddArchived(res.Archived)
	a.save()
	return res, err
}

func (a *App) ArchiveExpired(ctx context.Context) (int, error) {
	n, err := a.rotator.ArchiveExpired(ctx)
	a.metrics.AddArchived(n)
	a.save()
	return n, err
}

type ReclassifyOptions struct {
	Kind   content.Kind
	All    bool // every record instead of only "Other"
	Limit  int
	DryRun bool
}

type ReclassifyReport struct {
	Checked    int
	Changed    int
	Unresolved int
}

// Reclassify asks the model classifier for records the keyword classifier
// could not place. Unresolved records keep their vertical.
func (a *App) Reclassify(ctx context.Context, opts ReclassifyOptions) (ReclassifyReport, error) {
	var rep ReclassifyReport
	q := storage.Query{Kind: opts.Kind, Order: storage.OrderRecent, Limit: opts.Limit}
	if !opts.All {
		q.Vertical = content.VerticalOther
	}
	recs, err := a.store.List(ctx, q)
	if err != nil {
		return rep, err
	}

	a.resetBudget()
	defer a.save()
	for i := range recs {
		rec := &recs[i]
		rep.Checked++
		v, err := a.reclassifier.Reclassify(ctx, rec.Title, rec.Summary)
		switch {
		case err == nil:
		case errors.Is(err, classify.ErrUnresolved):
			rep.Unresolved++
			if errors.Is(err, ratelimit.ErrBudgetExhausted) {
				a.log.Warn("ai budget exhausted, stopping reclassification", "checked", rep.Checked)
				return rep, nil
			}
			continue
		default:
			return rep, err
		}
		if v == rec.Vertical {
			continue
		}
		a.log.Info("reclassified", "id", rec.ID, "title", rec.Title, "from", rec.Vertical, "to", v, "dry_run", opts.DryRun)
		rep.Changed++
		if opts.DryRun {
			continue
		}
		rec.Vertical = v
		if err := a.store.Update(ctx, rec); err != nil {
			return rep, fmt.Errorf("update %s: %w", rec.ID, err)
		}
	}
	return rep, nil
}

func (a *App) Cleanup(ctx context.Context, dryRun bool) (maintenance.Report, error) {
	rep, err := a.cleaner.Cleanup(ctx, dryRun)
	if !dryRun {
		a.save()
	}
	return rep, err
}

// Migrate creates the postgres schema. The memory store needs none.
func (a *App) Migrate(ctx context.Context) error {
	if a.pg == nil {
		a.log.Info("memory store selected, nothing to migrate")
		return nil
	}
	if err := a.pg.Migrate(ctx); err != nil {
		return err
	}
	a.log.Info("schema is up to date")
	return nil
}

// Published is the read contract of the rendering layer and the mailer.
func (a *App) Published(ctx context.Context, kind content.Kind, limit int) ([]content.Record, error) {
	return a.store.List(ctx, storage.Query{
		Kind:     kind,
		Statuses: []content.Status{content.StatusPublished},
		Order:    storage.OrderPriority,
		Limit:    limit,
	})
}
