// Package events announces new selections to downstream consumers such as
// the rendering layer and the digest mailer.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"github.com/deusflow/signalfeed/internal/content"
)

const DefaultSubject = "signalfeed.content.published"

// Published is the message body of one selected record.
type Published struct {
	Batch           string           `json:"batch"`
	Position        int              `json:"position"`
	BatchSize       int              `json:"batch_size"`
	ID              string           `json:"id"`
	Kind            content.Kind     `json:"kind"`
	Title           string           `json:"title"`
	SourceURL       string           `json:"source_url"`
	SourceName      string           `json:"source_name"`
	Vertical        content.Vertical `json:"vertical"`
	Priority        content.Priority `json:"priority"`
	ImportanceScore int              `json:"importance_score"`
	MetricValue     string           `json:"metric_value,omitempty"`
	SelectedAt      time.Time        `json:"selected_at"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
}

// Messages builds one event per record, sharing a batch id.
func Messages(batch string, recs []content.Record, at time.Time) []Published {
	out := make([]Published, len(recs))
	for i, r := range recs {
		selected := at
		if r.LastSelectedAt != nil {
			selected = *r.LastSelectedAt
		}
		out[i] = Published{
			Batch:           batch,
			Position:        i,
			BatchSize:       len(recs),
			ID:              r.ID,
			Kind:            r.Kind,
			Title:           r.Title,
			SourceURL:       r.SourceURL,
			SourceName:      r.SourceName,
			Vertical:        r.Vertical,
			Priority:        r.Priority,
			ImportanceScore: r.ImportanceScore,
			MetricValue:     r.MetricValue,
			SelectedAt:      selected,
			ExpiresAt:       r.ExpiresAt,
		}
	}
	return out
}

// conn is the part of *nats.Conn the publisher needs.
type conn interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSPublisher publishes selections on core NATS subjects.
type NATSPublisher struct {
	nc      conn
	subject string
	log     *slog.Logger
	now     func() time.Time
}

// NewNATSPublisher connects to url and publishes on subject.
func NewNATSPublisher(url, subject string, log *slog.Logger) (*NATSPublisher, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url,
		nats.Name("signalfeed"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return newPublisher(nc, subject, log), nil
}

func newPublisher(nc conn, subject string, log *slog.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultSubject
	}
	if log == nil {
		log = slog.Default()
	}
	return &NATSPublisher{nc: nc, subject: subject, log: log, now: time.Now}
}

// PublishSelection sends one message per record on <subject>.<kind> and
// flushes so the caller knows the server has them.
func (p *NATSPublisher) PublishSelection(ctx context.Context, kind content.Kind, recs []content.Record) error {
	if len(recs) == 0 {
		return nil
	}
	subject := p.subject + "." + string(kind)
	for _, msg := range Messages(uuid.NewString(), recs, p.now().UTC()) {
		data, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode event %s: %w", msg.ID, err)
		}
		if err := p.nc.Publish(subject, data); err != nil {
			return fmt.Errorf("publish %s: %w", msg.ID, err)
		}
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush %s: %w", subject, err)
	}
	p.log.Debug("published selection", "subject", subject, "count", len(recs))
	return nil
}

func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

// LogPublisher only logs. It stands in when NATS is not configured.
type LogPublisher struct {
	Log *slog.Logger
}

func (p LogPublisher) PublishSelection(_ context.Context, kind content.Kind, recs []content.Record) error {
	log := p.Log
	if log == nil {
		log = slog.Default()
	}
	for _, r := range recs {
		log.Info("selected", "kind", kind, "id", r.ID, "vertical", r.Vertical, "title", r.Title)
	}
	return nil
}

// Publisher is implemented by every selection sink.
type Publisher interface {
	PublishSelection(ctx context.Context, kind content.Kind, recs []content.Record) error
}

// Fanout hands a selection to every publisher and joins their errors.
type Fanout []Publisher

func (f Fanout) PublishSelection(ctx context.Context, kind content.Kind, recs []content.Record) error {
	var errs []error
	for _, p := range f {
		if err := p.PublishSelection(ctx, kind, recs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
