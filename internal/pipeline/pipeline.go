// Package pipeline runs one ingestion pass: fetch, filter, deduplicate,
// classify, enrich, score and persist.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deusflow/signalfeed/internal/classify"
	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/dedup"
	"github.com/deusflow/signalfeed/internal/enrich"
	"github.com/deusflow/signalfeed/internal/metrics"
	"github.com/deusflow/signalfeed/internal/relevance"
	"github.com/deusflow/signalfeed/internal/rss"
	"github.com/deusflow/signalfeed/internal/scoring"
)

type Fetcher interface {
	FetchAll(ctx context.Context, sources []rss.Source) []rss.SourceResult
}

// Scraper fills in the body of candidates whose snippet is too short.
type Scraper interface {
	FillShort(ctx context.Context, items []content.Candidate) int
}

type Enricher interface {
	Enrich(ctx context.Context, in enrich.Input) (enrich.Enrichment, error)
	EnrichMetric(ctx context.Context, in enrich.Input) (enrich.Enrichment, error)
}

// Deps are the stages. Scraper may be nil.
type Deps struct {
	Fetcher    Fetcher
	Scraper    Scraper
	Filter     *relevance.Filter
	Dedup      *dedup.Checker
	Classifier *classify.Classifier
	Scorer     *scoring.Scorer
	Enricher   Enricher
}

type Options struct {
	// Concurrency bounds how many sources are processed at once.
	Concurrency int
	// ScoreWithModel uses the model scorer for HIGH priority sources.
	ScoreWithModel bool
}

type Pipeline struct {
	deps Deps
	opts Options
	log  *slog.Logger
	now  func() time.Time
}

func New(deps Deps, opts Options, log *slog.Logger) *Pipeline {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{deps: deps, opts: opts, log: log, now: time.Now}
}

// Run ingests every source once and returns the per-source summary. Item and
// source failures are counted, never returned; only cancellation is an error.
func (p *Pipeline) Run(ctx context.Context, sources []rss.Source) (metrics.Summary, error) {
	run := metrics.NewRun(p.now().UTC())
	p.log.Info("starting ingestion run", "sources", len(sources))

	results := p.deps.Fetcher.FetchAll(ctx, sources)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.Concurrency)
	for _, res := range results {
		name := res.Source.Name
		if res.Err != nil {
			run.SourceError(name, res.Err)
			continue
		}
		items := res.Items
		for range items {
			run.Add(name, metrics.Fetched)
		}
		g.Go(func() error {
			p.processSource(gctx, run, items)
			return nil
		})
	}
	_ = g.Wait()

	sum := run.Finish(p.now().UTC())
	t := sum.Totals
	p.log.Info("ingestion run complete",
		"fetched", t.Fetched, "ingested", t.Ingested, "irrelevant", t.Irrelevant,
		"duplicates", t.Duplicates, "failed", t.Failed, "duration", sum.Duration())

	if err := ctx.Err(); err != nil {
		return sum, fmt.Errorf("ingestion interrupted: %w", err)
	}
	return sum, nil
}

// processSource handles the items of one source in order, so a later item
// sees what an earlier one persisted.
func (p *Pipeline) processSource(ctx context.Context, run *metrics.Run, items []content.Candidate) {
	relevant := make([]content.Candidate, 0, len(items))
	for _, c := range items {
		if d := p.deps.Filter.Check(c.Title, c.Summary, c.SourceName); !d.Relevant {
			p.log.Debug("irrelevant item", "title", c.Title, "reason", d.Reason, "keyword", d.Keyword)
			run.Add(c.SourceName, metrics.Irrelevant)
			continue
		}
		relevant = append(relevant, c)
	}

	if p.deps.Scraper != nil && len(relevant) > 0 {
		if n := p.deps.Scraper.FillShort(ctx, relevant); n > 0 {
			p.log.Debug("scraped short items", "count", n)
		}
	}

	for _, c := range relevant {
		if ctx.Err() != nil {
			return
		}
		run.Add(c.SourceName, p.Process(ctx, c))
	}
}

// Process takes one relevant candidate through dedup, classification,
// enrichment, scoring and persistence.
func (p *Pipeline) Process(ctx context.Context, c content.Candidate) metrics.Outcome {
	c.Link = content.CanonicalURL(c.Link)
	log := p.log.With("source", c.SourceName, "url", c.Link)
	if c.Kind == "" {
		c.Kind = content.KindArticle
	}

	var value string
	if c.Kind == content.KindMetric {
		if value = content.ExtractMetricValue(c.Title); value == "" {
			value = content.ExtractMetricValue(c.Summary)
		}
		if value == "" {
			log.Debug("metric item without a figure", "title", c.Title)
			return metrics.Irrelevant
		}
	}

	if res := p.deps.Dedup.Check(ctx, c); res.IsDuplicate {
		log.Debug("duplicate item", "title", c.Title, "reason", res.Reason, "similarity", res.Similarity, "match", res.MatchID)
		return metrics.Duplicate
	}

	body := strings.TrimSpace(c.Summary + "\n\n" + c.Content)
	vertical := p.deps.Classifier.Classify(c.Title, body, c.SourceName)
	if vertical == content.VerticalOther && c.Vertical.Valid() {
		vertical = c.Vertical
	}

	in := enrich.Input{
		Title:       c.Title,
		Content:     body,
		SourceName:  c.SourceName,
		Vertical:    vertical,
		MetricValue: value,
	}
	var (
		e   enrich.Enrichment
		err error
	)
	if c.Kind == content.KindMetric {
		e, err = p.deps.Enricher.EnrichMetric(ctx, in)
	} else {
		e, err = p.deps.Enricher.Enrich(ctx, in)
	}
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			log.Warn("enrichment failed, dropping item", "title", c.Title, "error", err)
		}
		return metrics.Failed
	}

	priority := c.Priority
	if priority == "" {
		priority = content.PriorityMedium
	}
	score := p.score(ctx, priority, scoring.Input{
		Title:        c.Title,
		Summary:      c.Summary,
		SourceName:   c.SourceName,
		Vertical:     vertical,
		WhyItMatters: e.WhyItMatters,
		TalkTrack:    e.TalkTrack,
	})

	rec := &content.Record{
		Kind:            c.Kind,
		Title:           c.Title,
		Summary:         c.Summary,
		SourceURL:       c.Link,
		SourceName:      c.SourceName,
		Vertical:        vertical,
		Priority:        priority,
		Status:          content.StatusDraft,
		ImportanceScore: score,
		WhyItMatters:    e.WhyItMatters,
		TalkTrack:       e.TalkTrack,
		MetricValue:     value,
		PublishedAt:     c.PublishedAt,
	}
	res, err := p.deps.Dedup.CreateSafely(ctx, rec)
	if err != nil {
		log.Error("failed to persist record", "title", c.Title, "error", err)
		return metrics.Failed
	}
	if res.IsDuplicate {
		log.Debug("duplicate on insert", "title", c.Title, "reason", res.Reason)
		return metrics.Duplicate
	}

	log.Info("ingested", "id", rec.ID, "kind", rec.Kind, "vertical", vertical, "score", score)
	return metrics.Ingested
}

func (p *Pipeline) score(ctx context.Context, priority content.Priority, in scoring.Input) int {
	if p.opts.ScoreWithModel && priority == content.PriorityHigh {
		score, method := p.deps.Scorer.ScoreWithModel(ctx, in)
		p.log.Debug("scored", "title", in.Title, "score", score, "method", method)
		return score
	}
	return p.deps.Scorer.Score(in)
}
