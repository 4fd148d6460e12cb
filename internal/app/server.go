package app

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/metrics"
	"github.com/deusflow/signalfeed/internal/ratelimit"
)

const maxPublishedLimit = 100

type publishedLister interface {
	Published(ctx context.Context, kind content.Kind, limit int) ([]content.Record, error)
}

type monitor struct {
	metrics *metrics.Metrics
	limiter *ratelimit.AIRateLimiter
	store   publishedLister
}

// NewRouter serves /health, /metrics and the read-only /published view.
func NewRouter(m *metrics.Metrics, limiter *ratelimit.AIRateLimiter, store publishedLister) *mux.Router {
	mon := &monitor{metrics: m, limiter: limiter, store: store}

	r := mux.NewRouter()
	r.HandleFunc("/health", mon.health).Methods(http.MethodGet)
	r.HandleFunc("/metrics", mon.stats).Methods(http.MethodGet)
	r.HandleFunc("/published", mon.published).Methods(http.MethodGet)
	r.HandleFunc("/published/{kind}", mon.published).Methods(http.MethodGet)
	return r
}

// Router is the monitoring router of this app.
func (a *App) Router() *mux.Router {
	return NewRouter(a.metrics, a.limiter, a)
}

func (m *monitor) health(w http.ResponseWriter, r *http.Request) {
	stats := m.metrics.GetStats()

	status := http.StatusOK
	state := "ok"
	if !m.metrics.Healthy() {
		status = http.StatusServiceUnavailable
		state = "error"
	}
	writeJSON(w, status, map[string]interface{}{
		"status":     state,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	})
}

func (m *monitor) stats(w http.ResponseWriter, r *http.Request) {
	stats := m.metrics.GetStats()
	if m.limiter != nil {
		stats["ai"] = m.limiter.GetStats()
	}
	writeJSON(w, http.StatusOK, stats)
}

func (m *monitor) published(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["kind"]
	if raw == "" {
		raw = r.URL.Query().Get("kind")
	}
	kind, err := content.ParseKind(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(n, maxPublishedLimit)
	}

	recs, err := m.store.Published(r.Context(), kind, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if recs == nil {
		recs = []content.Record{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"kind":  kind,
		"count": len(recs),
		"items": recs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
