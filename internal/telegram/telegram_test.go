package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/logger"
	"github.com/deusflow/signalfeed/internal/metrics"
	"github.com/deusflow/signalfeed/internal/retry"
)

func testNotifier(url string) *Notifier {
	n := New("TOKEN", "42", logger.Discard())
	n.baseURL = url
	n.retry = retry.RetryConfig{MaxAttempts: 3}
	return n
}

func TestSendMessageRetries(t *testing.T) {
	var calls atomic.Int32
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/botTOKEN/sendMessage", r.URL.Path)
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	require.NoError(t, testNotifier(srv.URL).SendMessage(context.Background(), "<b>hi</b>"))
	assert.Equal(t, int32(2), calls.Load())
	assert.Equal(t, "42", got["chat_id"])
	assert.Equal(t, "HTML", got["parse_mode"])
}

func TestSendMessageGivesUp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := testNotifier(srv.URL).SendMessage(context.Background(), "hi")
	assert.ErrorContains(t, err, "status 502")
}

func TestFormatRunSummary(t *testing.T) {
	start := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	run := metrics.NewRun(start)
	run.Add("Ad <Week>", metrics.Fetched)
	run.Add("Ad <Week>", metrics.Ingested)
	run.Add("Quiet", metrics.Fetched)
	run.Add("Quiet", metrics.Duplicate)
	run.SourceError("Broken", errors.New("timeout"))

	text := FormatRunSummary(run.Finish(start.Add(90 * time.Second)))
	assert.Contains(t, text, "fetched 2, ingested 1, irrelevant 0, duplicates 1, failed 0")
	assert.Contains(t, text, "Ad &lt;Week&gt;: +1")
	assert.Contains(t, text, "<b>Broken</b>: timeout")
	assert.NotContains(t, text, "Quiet")
	assert.Contains(t, text, "(1m30s)")
}

func TestFormatSelection(t *testing.T) {
	text := FormatSelection(content.KindMetric, []content.Record{{
		Title:       "US digital ad spend hits $74.8B",
		SourceURL:   "https://example.com/a?x=1&y=2",
		Vertical:    content.VerticalTechMedia,
		MetricValue: "$74.8B",
	}})
	assert.Contains(t, text, "New metric selection</b> (1)")
	assert.Contains(t, text, "[Technology &amp; Media]")
	assert.Contains(t, text, `href="https://example.com/a?x=1&amp;y=2"`)
	assert.Contains(t, text, "<b>$74.8B</b>")
}
