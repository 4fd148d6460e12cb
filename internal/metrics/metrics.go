package metrics

import (
	"sync"
	"time"
)

type Metrics struct {
	mu sync.RWMutex

	// Counters
	ItemsFetched       int64
	ItemsIngested      int64
	IrrelevantFiltered int64
	DuplicatesFiltered int64
	EnrichmentFailures int64
	SourceFailures     int64
	RecordsPublished   int64
	RecordsArchived    int64

	// Timings
	LastProcessingTime    time.Duration
	AverageProcessingTime time.Duration
	TotalProcessingTime   time.Duration
	ProcessingCount       int64

	// Status
	LastRunTime   time.Time
	LastErrorTime time.Time
	LastError     string
	IsHealthy     bool
	LastRun       *Summary
}

var Global = New()

func New() *Metrics {
	return &Metrics{IsHealthy: true}
}

// RecordRun folds a finished ingestion run into the process-wide counters.
func (m *Metrics) RecordRun(s Summary) {
	m.mu.Lock()
	defer m.mu.Unlock()

	t := s.Totals
	m.ItemsFetched += int64(t.Fetched)
	m.ItemsIngested += int64(t.Ingested)
	m.IrrelevantFiltered += int64(t.Irrelevant)
	m.DuplicatesFiltered += int64(t.Duplicates)
	m.EnrichmentFailures += int64(t.Failed)
	for _, src := range s.Sources {
		if src.Error != "" {
			m.SourceFailures++
		}
	}
	m.LastRun = &s

	m.recordProcessingTime(s.Duration())
}

func (m *Metrics) AddPublished(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordsPublished += int64(n)
}

func (m *Metrics) AddArchived(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RecordsArchived += int64(n)
}

func (m *Metrics) recordProcessingTime(duration time.Duration) {
	m.LastProcessingTime = duration
	m.TotalProcessingTime += duration
	m.ProcessingCount++

	if m.ProcessingCount > 0 {
		m.AverageProcessingTime = m.TotalProcessingTime / time.Duration(m.ProcessingCount)
	}
}

func (m *Metrics) SetLastRun() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastRunTime = time.Now()
	m.IsHealthy = true
}

func (m *Metrics) SetError(err string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastError = err
	m.LastErrorTime = time.Now()
	m.IsHealthy = false
}

func (m *Metrics) Healthy() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.IsHealthy
}

func (m *Metrics) GetStats() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]interface{}{
		"items_fetched":              m.ItemsFetched,
		"items_ingested":             m.ItemsIngested,
		"irrelevant_filtered":        m.IrrelevantFiltered,
		"duplicates_filtered":        m.DuplicatesFiltered,
		"enrichment_failures":        m.EnrichmentFailures,
		"source_failures":            m.SourceFailures,
		"records_published":          m.RecordsPublished,
		"records_archived":           m.RecordsArchived,
		"last_processing_time_ms":    m.LastProcessingTime.Milliseconds(),
		"average_processing_time_ms": m.AverageProcessingTime.Milliseconds(),
		"last_run_time":              m.LastRunTime.Format(time.RFC3339),
		"last_error_time":            m.LastErrorTime.Format(time.RFC3339),
		"last_error":                 m.LastError,
		"is_healthy":                 m.IsHealthy,
	}
	if m.LastRun != nil {
		stats["last_run"] = m.LastRun
	}
	return stats
}
