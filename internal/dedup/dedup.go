// Package dedup rejects candidates that repeat content already in the corpus.
// Checks run cheapest first: exact url, exact title and source, fuzzy title,
// fuzzy summary. The store's unique constraint remains the final guard.
package dedup

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/storage"
	"github.com/deusflow/signalfeed/internal/textutil"
)

type Reason string

const (
	ReasonNone         Reason = ""
	ReasonURL          Reason = "url"
	ReasonTitleSource  Reason = "title_source"
	ReasonFuzzyTitle   Reason = "fuzzy_title"
	ReasonFuzzySummary Reason = "fuzzy_summary"
	ReasonConstraint   Reason = "constraint"
)

type Result struct {
	IsDuplicate bool
	Reason      Reason
	Similarity  float64
	MatchID     string
}

// Thresholds are strict lower bounds: a similarity equal to the threshold
// is not a duplicate.
type Thresholds struct {
	ArticleTitle  float64
	MetricTitle   float64
	Summary       float64
	TitleWindow   time.Duration
	SummaryWindow time.Duration
	SummaryPrefix int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		ArticleTitle:  0.80,
		MetricTitle:   0.85,
		Summary:       0.70,
		TitleWindow:   7 * 24 * time.Hour,
		SummaryWindow: 3 * 24 * time.Hour,
		SummaryPrefix: 200,
	}
}

type Checker struct {
	store storage.Store
	th    Thresholds
	log   *slog.Logger
	now   func() time.Time
}

func NewChecker(store storage.Store, th Thresholds, log *slog.Logger) *Checker {
	if log == nil {
		log = slog.Default()
	}
	return &Checker{store: store, th: th, log: log, now: time.Now}
}

// Check never returns an error: lookup failures are logged and the candidate
// is treated as new.
func (c *Checker) Check(ctx context.Context, cand content.Candidate) Result {
	kind := cand.Kind
	if kind == "" {
		kind = content.KindArticle
	}

	// Records stored before links were canonicalized may hold the raw form.
	links := []string{content.CanonicalURL(cand.Link)}
	if raw := strings.TrimSpace(cand.Link); raw != links[0] {
		links = append(links, raw)
	}
	for _, link := range links {
		if r, err := c.store.FindByURL(ctx, kind, link); err == nil {
			return Result{IsDuplicate: true, Reason: ReasonURL, Similarity: 1, MatchID: r.ID}
		} else if !errors.Is(err, storage.ErrNotFound) {
			return c.failOpen("url lookup", cand, err)
		}
	}

	if r, err := c.store.FindByTitleSource(ctx, kind, cand.Title, cand.SourceName); err == nil {
		return Result{IsDuplicate: true, Reason: ReasonTitleSource, Similarity: 1, MatchID: r.ID}
	} else if !errors.Is(err, storage.ErrNotFound) {
		return c.failOpen("title lookup", cand, err)
	}

	now := c.now()
	window := max(c.th.TitleWindow, c.th.SummaryWindow)
	recent, err := c.store.List(ctx, storage.Query{
		Kind:         kind,
		SourceName:   cand.SourceName,
		CreatedAfter: now.Add(-window),
	})
	if err != nil {
		return c.failOpen("recent lookup", cand, err)
	}

	titleThreshold := c.th.ArticleTitle
	if kind == content.KindMetric {
		titleThreshold = c.th.MetricTitle
	}
	title := textutil.Normalize(cand.Title)
	titleCutoff := now.Add(-c.th.TitleWindow)
	for i := range recent {
		r := &recent[i]
		if !r.CreatedAt.After(titleCutoff) {
			continue
		}
		if sim := textutil.Similarity(title, textutil.Normalize(r.Title)); sim > titleThreshold {
			return Result{IsDuplicate: true, Reason: ReasonFuzzyTitle, Similarity: sim, MatchID: r.ID}
		}
	}

	summary := textutil.Prefix(textutil.Normalize(cand.Summary), c.th.SummaryPrefix)
	if summary == "" {
		return Result{}
	}
	summaryCutoff := now.Add(-c.th.SummaryWindow)
	for i := range recent {
		r := &recent[i]
		if !r.CreatedAt.After(summaryCutoff) {
			continue
		}
		other := textutil.Prefix(textutil.Normalize(r.Summary), c.th.SummaryPrefix)
		if other == "" {
			continue
		}
		if sim := textutil.Similarity(summary, other); sim > c.th.Summary {
			return Result{IsDuplicate: true, Reason: ReasonFuzzySummary, Similarity: sim, MatchID: r.ID}
		}
	}

	return Result{}
}

// CreateSafely checks rec and inserts it when new, storing the canonical
// source URL. A unique violation raced in by a concurrent writer is reported
// as a duplicate, not an error.
func (c *Checker) CreateSafely(ctx context.Context, rec *content.Record) (Result, error) {
	rec.SourceURL = content.CanonicalURL(rec.SourceURL)
	if res := c.Check(ctx, candidateOf(rec)); res.IsDuplicate {
		return res, nil
	}

	if err := c.store.Create(ctx, rec); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return Result{IsDuplicate: true, Reason: ReasonConstraint, Similarity: 1}, nil
		}
		return Result{}, err
	}
	return Result{}, nil
}

func (c *Checker) failOpen(stage string, cand content.Candidate, err error) Result {
	c.log.Warn("duplicate check failed, treating as new", "stage", stage, "url", cand.Link, "error", err)
	return Result{}
}

func candidateOf(r *content.Record) content.Candidate {
	return content.Candidate{
		Title:       r.Title,
		Link:        r.SourceURL,
		Summary:     r.Summary,
		SourceName:  r.SourceName,
		Vertical:    r.Vertical,
		Priority:    r.Priority,
		Kind:        r.Kind,
		PublishedAt: r.PublishedAt,
	}
}
