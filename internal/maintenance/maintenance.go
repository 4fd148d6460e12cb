// Package maintenance deletes records that should no longer be kept:
// archived records past retention and duplicates that slipped in before the
// checks existed.
package maintenance

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/storage"
	"github.com/deusflow/signalfeed/internal/textutil"
)

type Report struct {
	Expired    int
	Duplicates int
	DryRun     bool
}

type Cleaner struct {
	store     storage.Store
	retention time.Duration
	log       *slog.Logger
	now       func() time.Time
}

func NewCleaner(store storage.Store, retention time.Duration, log *slog.Logger) *Cleaner {
	if log == nil {
		log = slog.Default()
	}
	return &Cleaner{store: store, retention: retention, log: log, now: time.Now}
}

// Cleanup removes ARCHIVED records older than the retention period and every
// later-created duplicate of an older record. PUBLISHED records are never
// deleted. With dryRun nothing is deleted and the report counts candidates.
func (c *Cleaner) Cleanup(ctx context.Context, dryRun bool) (Report, error) {
	rep := Report{DryRun: dryRun}

	all, err := c.store.List(ctx, storage.Query{Order: storage.OrderCreated})
	if err != nil {
		return rep, fmt.Errorf("list records: %w", err)
	}

	doomed := make(map[string]string) // id -> reason
	if c.retention > 0 {
		cutoff := c.now().UTC().Add(-c.retention)
		for _, r := range all {
			if r.Status == content.StatusArchived && r.UpdatedAt.Before(cutoff) {
				doomed[r.ID] = "expired"
			}
		}
	}

	byURL := map[string]string{}
	byTitle := map[string]string{}
	for _, r := range all {
		if _, gone := doomed[r.ID]; gone {
			continue
		}
		urlKey := string(r.Kind) + "|" + content.CanonicalURL(r.SourceURL)
		titleKey := string(r.Kind) + "|" + textutil.Normalize(r.Title) + "|" + strings.ToLower(r.SourceName)

		first, seenURL := byURL[urlKey]
		if !seenURL {
			first, seenURL = byTitle[titleKey]
		}
		if seenURL && r.Status != content.StatusPublished {
			doomed[r.ID] = "duplicate of " + first
			continue
		}
		if _, ok := byURL[urlKey]; !ok {
			byURL[urlKey] = r.ID
		}
		if _, ok := byTitle[titleKey]; !ok {
			byTitle[titleKey] = r.ID
		}
	}

	for id, reason := range doomed {
		if strings.HasPrefix(reason, "duplicate") {
			rep.Duplicates++
		} else {
			rep.Expired++
		}
		if dryRun {
			c.log.Info("would delete record", "id", id, "reason", reason)
			continue
		}
		if err := c.store.Delete(ctx, id); err != nil {
			return rep, fmt.Errorf("delete %s: %w", id, err)
		}
	}

	c.log.Info("cleanup complete", "expired", rep.Expired, "duplicates", rep.Duplicates, "dry_run", dryRun)
	return rep, nil
}
