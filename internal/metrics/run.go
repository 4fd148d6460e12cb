package metrics

import (
	"sort"
	"sync"
	"time"
)

// Outcome is what happened to one candidate item.
type Outcome int

const (
	Fetched Outcome = iota
	Irrelevant
	Duplicate
	Ingested
	Failed
)

// SourceStats counts outcomes for one source in one run.
type SourceStats struct {
	Source     string `json:"source"`
	Fetched    int    `json:"fetched"`
	Irrelevant int    `json:"irrelevant"`
	Duplicates int    `json:"duplicates"`
	Ingested   int    `json:"ingested"`
	Failed     int    `json:"failed"`
	Error      string `json:"error,omitempty"`
}

func (s *SourceStats) add(o Outcome) {
	switch o {
	case Fetched:
		s.Fetched++
	case Irrelevant:
		s.Irrelevant++
	case Duplicate:
		s.Duplicates++
	case Ingested:
		s.Ingested++
	case Failed:
		s.Failed++
	}
}

// Summary is the operator-facing report of a finished run.
type Summary struct {
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Sources    []SourceStats `json:"sources"`
	Totals     SourceStats   `json:"totals"`
}

func (s Summary) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Run collects per-source outcomes while a pipeline run is in flight.
type Run struct {
	mu      sync.Mutex
	started time.Time
	sources map[string]*SourceStats
}

func NewRun(now time.Time) *Run {
	return &Run{started: now, sources: make(map[string]*SourceStats)}
}

func (r *Run) source(name string) *SourceStats {
	s, ok := r.sources[name]
	if !ok {
		s = &SourceStats{Source: name}
		r.sources[name] = s
	}
	return s
}

func (r *Run) Add(source string, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source(source).add(o)
}

// SourceError marks a source whose fetch failed.
func (r *Run) SourceError(source string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.source(source).Error = err.Error()
}

// Finish freezes the run into a Summary sorted by source name.
func (r *Run) Finish(now time.Time) Summary {
	r.mu.Lock()
	defer r.mu.Unlock()

	sum := Summary{StartedAt: r.started, FinishedAt: now, Totals: SourceStats{Source: "total"}}
	for _, s := range r.sources {
		sum.Sources = append(sum.Sources, *s)
		sum.Totals.Fetched += s.Fetched
		sum.Totals.Irrelevant += s.Irrelevant
		sum.Totals.Duplicates += s.Duplicates
		sum.Totals.Ingested += s.Ingested
		sum.Totals.Failed += s.Failed
	}
	sort.Slice(sum.Sources, func(i, j int) bool { return sum.Sources[i].Source < sum.Sources[j].Source })
	return sum
}
