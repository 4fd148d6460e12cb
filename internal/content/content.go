// Package content holds the records that flow through the curation pipeline.
package content

import (
	"fmt"
	"strings"
	"time"
)

// Kind separates the two collections of the corpus.
type Kind string

const (
	KindArticle Kind = "article"
	KindMetric  Kind = "metric"
)

// ParseKind accepts "article" and "metric"; anything else is an error.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case KindArticle, "":
		return KindArticle, nil
	case KindMetric:
		return KindMetric, nil
	}
	return "", fmt.Errorf("unknown content kind %q", s)
}

type Priority string

const (
	PriorityHigh   Priority = "HIGH"
	PriorityMedium Priority = "MEDIUM"
	PriorityLow    Priority = "LOW"
)

// ParsePriority defaults to MEDIUM for empty or unknown values.
func ParsePriority(s string) Priority {
	switch Priority(strings.ToUpper(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityLow:
		return PriorityLow
	}
	return PriorityMedium
}

// Rank orders priorities for display, HIGH first.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	}
	return 2
}

type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPublished Status = "PUBLISHED"
	StatusArchived  Status = "ARCHIVED"
)

// CanTransition reports whether moving from s to next is allowed.
// ARCHIVED -> PUBLISHED is only legal through re-selection after the cool-down,
// which the caller has to check separately.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusDraft:
		return next == StatusPublished || next == StatusArchived
	case StatusPublished:
		return next == StatusArchived
	case StatusArchived:
		return next == StatusPublished
	}
	return false
}

// Candidate is an item as produced by the fetcher. Nothing in it is trusted.
type Candidate struct {
	Title       string
	Link        string
	Summary     string
	Content     string // markdown body when the feed carries one
	SourceName  string
	Vertical    Vertical // source-declared
	Priority    Priority // source-declared
	Kind        Kind
	PublishedAt time.Time
}

// Record is a persisted article or metric.
type Record struct {
	ID              string     `json:"id"`
	Kind            Kind       `json:"kind"`
	Title           string     `json:"title"`
	Summary         string     `json:"summary"`
	SourceURL       string     `json:"source_url"`
	SourceName      string     `json:"source_name"`
	Vertical        Vertical   `json:"vertical"`
	Priority        Priority   `json:"priority"`
	Status          Status     `json:"status"`
	ImportanceScore int        `json:"importance_score"`
	WhyItMatters    string     `json:"why_it_matters"`
	TalkTrack       string     `json:"talk_track"`
	MetricValue     string     `json:"metric_value,omitempty"`
	PublishedAt     time.Time  `json:"published_at"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	LastSelectedAt  *time.Time `json:"last_selected_at,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// ClampScore forces a score into [0,100].
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Validate checks the invariants a record must satisfy before it is written.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.SourceURL) == "" {
		return fmt.Errorf("record %q: empty source url", r.Title)
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record %s: empty title", r.SourceURL)
	}
	if r.ImportanceScore < 0 || r.ImportanceScore > 100 {
		return fmt.Errorf("record %s: importance score %d out of range", r.SourceURL, r.ImportanceScore)
	}
	if !r.Vertical.Valid() {
		return fmt.Errorf("record %s: unknown vertical %q", r.SourceURL, r.Vertical)
	}
	if r.Kind != KindArticle && r.Kind != KindMetric {
		return fmt.Errorf("record %s: unknown kind %q", r.SourceURL, r.Kind)
	}
	if r.Kind == KindMetric && strings.TrimSpace(r.MetricValue) == "" {
		return fmt.Errorf("record %s: metric without value", r.SourceURL)
	}
	return nil
}

// SelectedWithin reports whether the record was shown less than window ago.
func (r *Record) SelectedWithin(window time.Duration, now time.Time) bool {
	if r.LastSelectedAt == nil {
		return false
	}
	return now.Sub(*r.LastSelectedAt) < window
}

// Expired reports whether expiresAt has passed.
func (r *Record) Expired(now time.Time) bool {
	return r.ExpiresAt != nil && !r.ExpiresAt.After(now)
}
