package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/deusflow/signalfeed/internal/content"
)

func article(url, title string, published time.Time) *content.Record {
	return &content.Record{
		Kind:        content.KindArticle,
		Title:       title,
		SourceURL:   url,
		SourceName:  "Adweek",
		Vertical:    content.VerticalTechMedia,
		Priority:    content.PriorityMedium,
		PublishedAt: published,
	}
}

func TestMemoryStoreUniqueURLPerKind(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")
	now := time.Now()

	require.NoError(t, s.Create(ctx, article("https://x.test/a", "A", now)))
	err := s.Create(ctx, article("https://x.test/a", "A again", now))
	assert.ErrorIs(t, err, ErrDuplicate)

	metric := article("https://x.test/a", "A as metric", now)
	metric.Kind = content.KindMetric
	metric.MetricValue = "12%"
	assert.NoError(t, s.Create(ctx, metric), "metrics are a separate collection")
	assert.Equal(t, 2, s.Len())
}

func TestMemoryStoreCreateDefaults(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")
	r := article("https://x.test/b", "B", time.Now())
	require.NoError(t, s.Create(ctx, r))

	assert.NotEmpty(t, r.ID)
	assert.Equal(t, content.StatusDraft, r.Status)
	assert.False(t, r.CreatedAt.IsZero())

	got, err := s.FindByURL(ctx, content.KindArticle, "https://x.test/b")
	require.NoError(t, err)
	assert.Equal(t, r.ID, got.ID)

	_, err = s.FindByTitleSource(ctx, content.KindArticle, "B", "Other Source")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	r := article("https://x.test/c", "C", time.Now())
	r.ImportanceScore = 150
	assert.Error(t, NewMemoryStore("").Create(context.Background(), r))
}

func TestMemoryStoreListFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")
	base := time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC)

	low := article("https://x.test/1", "low new", base.Add(3*time.Hour))
	low.Priority = content.PriorityLow
	high := article("https://x.test/2", "high old", base)
	high.Priority = content.PriorityHigh
	draft := article("https://x.test/3", "draft", base.Add(time.Hour))
	for _, r := range []*content.Record{low, high, draft} {
		require.NoError(t, s.Create(ctx, r))
	}
	low.Status = content.StatusPublished
	high.Status = content.StatusPublished
	require.NoError(t, s.Update(ctx, low))
	require.NoError(t, s.Update(ctx, high))

	got, err := s.List(ctx, Query{Statuses: []content.Status{content.StatusPublished}, Order: OrderPriority})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "high old", got[0].Title)

	got, err = s.List(ctx, Query{Kind: content.KindArticle, Limit: 1})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "low new", got[0].Title)

	got, err = s.List(ctx, Query{PublishedAfter: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestMemoryStoreUpdateAndDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore("")
	r := article("https://x.test/d", "D", time.Now())
	require.NoError(t, s.Create(ctx, r))

	missing := *r
	missing.ID = "nope"
	assert.ErrorIs(t, s.Update(ctx, &missing), ErrNotFound)

	require.NoError(t, s.Delete(ctx, r.ID))
	assert.ErrorIs(t, s.Delete(ctx, r.ID), ErrNotFound)
	require.NoError(t, s.Create(ctx, article("https://x.test/d", "D", time.Now())), "url is free again")
}

func TestMemoryStorePersistence(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "content.json")
	s := NewMemoryStore(path)
	shown := time.Now().UTC().Truncate(time.Second)
	r := article("https://x.test/e", "E", shown)
	r.LastSelectedAt = &shown
	require.NoError(t, s.Create(ctx, r))
	require.NoError(t, s.Save())

	reloaded := NewMemoryStore(path)
	require.NoError(t, reloaded.Load())
	got, err := reloaded.Get(ctx, r.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LastSelectedAt)
	assert.True(t, shown.Equal(*got.LastSelectedAt))
	assert.ErrorIs(t, reloaded.Create(ctx, article("https://x.test/e", "E", shown)), ErrDuplicate)
}

func TestMemoryStoreConcurrentSaves(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "content.json")
	s := NewMemoryStore(path)

	var g errgroup.Group
	for i := 0; i < 20; i++ {
		g.Go(func() error {
			if err := s.Create(ctx, article(fmt.Sprintf("https://x.test/%d", i), fmt.Sprintf("Story %d", i), time.Now())); err != nil {
				return err
			}
			return s.Save()
		})
	}
	require.NoError(t, g.Wait())
	require.NoError(t, s.Save())

	reloaded := NewMemoryStore(path)
	require.NoError(t, reloaded.Load())
	all, err := reloaded.List(ctx, Query{})
	require.NoError(t, err)
	assert.Len(t, all, 20)

	leftovers, err := filepath.Glob(filepath.Join(dir, "*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})))
	assert.False(t, isUniqueViolation(&pq.Error{Code: "23514"}))
	assert.False(t, isUniqueViolation(fmt.Errorf("plain")))
}

func TestListQuerySQL(t *testing.T) {
	q := Query{
		Kind:         content.KindMetric,
		Statuses:     []content.Status{content.StatusPublished, content.StatusDraft},
		SourceName:   "eMarketer",
		CreatedAfter: time.Unix(0, 0),
		Order:        OrderPriority,
		Limit:        5,
	}
	sql, args, err := listQuery(q).ToSql()
	require.NoError(t, err)

	assert.Contains(t, sql, "FROM content_records")
	assert.Contains(t, sql, "kind = $1")
	assert.Contains(t, sql, "status = ANY($2)")
	assert.Contains(t, sql, "source_name = $3")
	assert.Contains(t, sql, "created_at > $4")
	assert.Contains(t, sql, "CASE priority WHEN 'HIGH'")
	assert.Contains(t, sql, "LIMIT 5")
	require.Len(t, args, 4)
	assert.Equal(t, pq.StringArray{"PUBLISHED", "DRAFT"}, args[1])
}

func TestInsertQueryBindsAllColumns(t *testing.T) {
	r := article("https://x.test/f", "F", time.Now())
	r.ID = "id-1"
	sql, args, err := insertQuery(r).ToSql()
	require.NoError(t, err)
	assert.Contains(t, sql, "INSERT INTO content_records")
	assert.Len(t, args, len(recordColumns))
}
