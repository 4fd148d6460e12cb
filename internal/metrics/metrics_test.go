package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSummary(t *testing.T) {
	start := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	r := NewRun(start)
	r.Add("Adweek", Fetched)
	r.Add("Adweek", Fetched)
	r.Add("Adweek", Ingested)
	r.Add("Adweek", Duplicate)
	r.Add("AdExchanger", Fetched)
	r.Add("AdExchanger", Irrelevant)
	r.SourceError("Broken", errors.New("timeout"))

	sum := r.Finish(start.Add(time.Minute))
	require.Len(t, sum.Sources, 3)
	assert.Equal(t, "AdExchanger", sum.Sources[0].Source)
	assert.Equal(t, "timeout", sum.Sources[2].Error)
	assert.Equal(t, 3, sum.Totals.Fetched)
	assert.Equal(t, 1, sum.Totals.Ingested)
	assert.Equal(t, time.Minute, sum.Duration())
}

func TestRecordRun(t *testing.T) {
	m := New()
	r := NewRun(time.Now())
	r.Add("Adweek", Fetched)
	r.Add("Adweek", Failed)
	r.SourceError("Broken", errors.New("dns"))
	m.RecordRun(r.Finish(time.Now()))
	m.AddPublished(4)

	stats := m.GetStats()
	assert.Equal(t, int64(1), stats["items_fetched"])
	assert.Equal(t, int64(1), stats["enrichment_failures"])
	assert.Equal(t, int64(1), stats["source_failures"])
	assert.Equal(t, int64(4), stats["records_published"])
	assert.Contains(t, stats, "last_run")
}

func TestErrorFlipsHealth(t *testing.T) {
	m := New()
	m.SetError("db down")
	assert.False(t, m.Healthy())
	m.SetLastRun()
	assert.True(t, m.Healthy())
}
