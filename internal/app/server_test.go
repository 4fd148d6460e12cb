package app

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/logger"
	"github.com/deusflow/signalfeed/internal/metrics"
	"github.com/deusflow/signalfeed/internal/ratelimit"
)

type fakeLister struct {
	kind  content.Kind
	limit int
	recs  []content.Record
	err   error
}

func (f *fakeLister) Published(_ context.Context, kind content.Kind, limit int) ([]content.Record, error) {
	f.kind, f.limit = kind, limit
	return f.recs, f.err
}

func serve(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return rr, body
}

func TestHealth(t *testing.T) {
	m := metrics.New()
	r := NewRouter(m, nil, &fakeLister{})

	rr, body := serve(t, r, "/health")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ok", body["status"])

	m.SetError("feed down")
	rr, body = serve(t, r, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "feed down", body["last_error"])
}

func TestMetricsIncludesAIUsage(t *testing.T) {
	limiter := ratelimit.NewAIRateLimiter(nil, 10, 0, logger.Discard())
	require.NoError(t, limiter.Use("gemini"))
	m := metrics.New()
	m.AddPublished(3)

	rr, body := serve(t, NewRouter(m, limiter, &fakeLister{}), "/metrics")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.EqualValues(t, 3, body["records_published"])
	assert.Contains(t, body, "ai")
}

func TestPublished(t *testing.T) {
	lister := &fakeLister{recs: []content.Record{{ID: "1", Kind: content.KindMetric, Title: "Retail media spend reaches $58.8B"}}}
	r := NewRouter(metrics.New(), nil, lister)

	rr, body := serve(t, r, "/published/metric?limit=500")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, content.KindMetric, lister.kind)
	assert.Equal(t, maxPublishedLimit, lister.limit)
	assert.EqualValues(t, 1, body["count"])

	rr, _ = serve(t, r, "/published")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, content.KindArticle, lister.kind)
	assert.Equal(t, 20, lister.limit)
}

func TestPublishedRejectsBadInput(t *testing.T) {
	r := NewRouter(metrics.New(), nil, &fakeLister{})

	rr, _ := serve(t, r, "/published?kind=podcast")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = serve(t, r, "/published?limit=-1")
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr, _ = serve(t, NewRouter(metrics.New(), nil, &fakeLister{err: errors.New("db down")}), "/published")
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}
