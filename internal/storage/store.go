// Package storage persists content records. Uniqueness of (kind, source url)
// is enforced here; callers treat ErrDuplicate as a benign outcome.
package storage

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/deusflow/signalfeed/internal/content"
)

var (
	ErrDuplicate = errors.New("record already exists")
	ErrNotFound  = errors.New("record not found")
)

// Order is the sort order of List results.
type Order int

const (
	// OrderRecent sorts by published time, newest first.
	OrderRecent Order = iota
	// OrderPriority sorts HIGH first, then newest first. Consumers use it for display.
	OrderPriority
	// OrderCreated sorts by creation time, oldest first.
	OrderCreated
)

// Query filters List. Zero fields do not filter.
type Query struct {
	Kind           content.Kind
	Statuses       []content.Status
	SourceName     string
	Vertical       content.Vertical
	CreatedAfter   time.Time
	PublishedAfter time.Time
	ExpiresBefore  time.Time
	Order          Order
	Limit          int
}

type Store interface {
	// Create assigns ID and timestamps when empty. Returns ErrDuplicate when a
	// record of the same kind and source url exists.
	Create(ctx context.Context, r *content.Record) error
	Update(ctx context.Context, r *content.Record) error
	Get(ctx context.Context, id string) (*content.Record, error)
	FindByURL(ctx context.Context, kind content.Kind, url string) (*content.Record, error)
	FindByTitleSource(ctx context.Context, kind content.Kind, title, source string) (*content.Record, error)
	List(ctx context.Context, q Query) ([]content.Record, error)
	Delete(ctx context.Context, id string) error
}

func (q Query) matches(r *content.Record) bool {
	if q.Kind != "" && r.Kind != q.Kind {
		return false
	}
	if len(q.Statuses) > 0 {
		found := false
		for _, s := range q.Statuses {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if q.SourceName != "" && r.SourceName != q.SourceName {
		return false
	}
	if q.Vertical != "" && r.Vertical != q.Vertical {
		return false
	}
	if !q.CreatedAfter.IsZero() && !r.CreatedAt.After(q.CreatedAfter) {
		return false
	}
	if !q.PublishedAfter.IsZero() && !r.PublishedAt.After(q.PublishedAfter) {
		return false
	}
	if !q.ExpiresBefore.IsZero() && (r.ExpiresAt == nil || !r.ExpiresAt.Before(q.ExpiresBefore)) {
		return false
	}
	return true
}

func sortRecords(recs []content.Record, order Order) {
	switch order {
	case OrderPriority:
		sort.SliceStable(recs, func(i, j int) bool {
			ri, rj := recs[i].Priority.Rank(), recs[j].Priority.Rank()
			if ri != rj {
				return ri < rj
			}
			return recs[i].PublishedAt.After(recs[j].PublishedAt)
		})
	case OrderCreated:
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].CreatedAt.Before(recs[j].CreatedAt)
		})
	default:
		sort.SliceStable(recs, func(i, j int) bool {
			return recs[i].PublishedAt.After(recs[j].PublishedAt)
		})
	}
}
