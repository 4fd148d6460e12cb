package rotation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/storage"
)

// Publisher is told about every new selection.
type Publisher interface {
	PublishSelection(ctx context.Context, kind content.Kind, recs []content.Record) error
}

type Options struct {
	ArticleLookback time.Duration
	MetricLookback  time.Duration
	MetricCooldown  time.Duration
	ArticleExpiry   time.Duration
	MetricExpiry    time.Duration
}

func DefaultOptions() Options {
	return Options{
		ArticleLookback: 24 * time.Hour,
		MetricLookback:  90 * 24 * time.Hour,
		MetricCooldown:  3 * 24 * time.Hour,
		ArticleExpiry:   7 * 24 * time.Hour,
		MetricExpiry:    30 * 24 * time.Hour,
	}
}

// Policy returns the eligibility policy of kind.
func (o Options) Policy(kind content.Kind) Policy {
	if kind == content.KindMetric {
		return Policy{Lookback: o.MetricLookback, Cooldown: o.MetricCooldown}
	}
	return Policy{Lookback: o.ArticleLookback, NeverReuse: true}
}

func (o Options) expiry(kind content.Kind) time.Duration {
	if kind == content.KindMetric {
		return o.MetricExpiry
	}
	return o.ArticleExpiry
}

// Result reports what a rotation changed.
type Result struct {
	Kind      content.Kind
	Published []content.Record
	Archived  int
}

type Rotator struct {
	store storage.Store
	pub   Publisher
	opts  Options
	log   *slog.Logger
	now   func() time.Time
}

// New builds a rotator. pub may be nil.
func New(store storage.Store, pub Publisher, opts Options, log *slog.Logger) *Rotator {
	if log == nil {
		log = slog.Default()
	}
	return &Rotator{store: store, pub: pub, opts: opts, log: log, now: time.Now}
}

// Rotate selects up to count records of kind, archives the previous
// selection and publishes the new one. A previous record that is eligible
// again stays published with a fresh stamp. When nothing is eligible the
// current selection stays visible.
func (r *Rotator) Rotate(ctx context.Context, kind content.Kind, count int) (Result, error) {
	now := r.now().UTC()
	res := Result{Kind: kind}
	policy := r.opts.Policy(kind)

	previous, err := r.store.List(ctx, storage.Query{
		Kind:     kind,
		Statuses: []content.Status{content.StatusPublished},
	})
	if err != nil {
		return res, fmt.Errorf("list published %s: %w", kind, err)
	}

	pool, err := r.store.List(ctx, storage.Query{
		Kind:           kind,
		PublishedAfter: now.Add(-policy.Lookback),
	})
	if err != nil {
		return res, fmt.Errorf("list %s pool: %w", kind, err)
	}

	selected := SelectForPublication(pool, count, policy, now)
	if len(selected) == 0 {
		r.log.Warn("no eligible records, keeping current selection",
			"kind", kind, "pool", len(pool), "published", len(previous))
		return res, nil
	}

	reselected := make(map[string]bool, len(selected))
	for _, rec := range selected {
		reselected[rec.ID] = true
	}
	for i := range previous {
		rec := &previous[i]
		if reselected[rec.ID] {
			continue
		}
		rec.Status = content.StatusArchived
		rec.UpdatedAt = now
		if err := r.store.Update(ctx, rec); err != nil {
			return res, fmt.Errorf("archive %s: %w", rec.ID, err)
		}
		res.Archived++
	}

	expires := now.Add(r.opts.expiry(kind))
	for i := range selected {
		rec := &selected[i]
		if rec.Status != content.StatusPublished && !rec.Status.CanTransition(content.StatusPublished) {
			continue
		}
		stamp, exp := now, expires
		rec.Status = content.StatusPublished
		rec.LastSelectedAt = &stamp
		rec.ExpiresAt = &exp
		rec.UpdatedAt = now
		if err := r.store.Update(ctx, rec); err != nil {
			return res, fmt.Errorf("publish %s: %w", rec.ID, err)
		}
		res.Published = append(res.Published, *rec)
	}

	r.log.Info("rotation complete", "kind", kind, "published", len(res.Published), "archived", res.Archived)

	if r.pub != nil && len(res.Published) > 0 {
		if err := r.pub.PublishSelection(ctx, kind, res.Published); err != nil {
			r.log.Warn("failed to publish selection event", "kind", kind, "error", err)
		}
	}
	return res, nil
}

// ArchiveExpired archives DRAFT and PUBLISHED records whose expiry has passed.
func (r *Rotator) ArchiveExpired(ctx context.Context) (int, error) {
	now := r.now().UTC()
	expired, err := r.store.List(ctx, storage.Query{
		Statuses:      []content.Status{content.StatusDraft, content.StatusPublished},
		ExpiresBefore: now,
	})
	if err != nil {
		return 0, fmt.Errorf("list expired: %w", err)
	}

	archived := 0
	for i := range expired {
		rec := &expired[i]
		rec.Status = content.StatusArchived
		rec.UpdatedAt = now
		if err := r.store.Update(ctx, rec); err != nil {
			r.log.Warn("failed to archive record", "id", rec.ID, "error", err)
			continue
		}
		archived++
	}
	if archived > 0 {
		r.log.Info("archived expired records", "count", archived)
	}
	return archived, nil
}
