// Package telegram sends operator notifications: run summaries and the
// records picked by each rotation.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/metrics"
	"github.com/deusflow/signalfeed/internal/retry"
)

const (
	defaultBaseURL = "https://api.telegram.org"
	maxMessageLen  = 4000
)

type Notifier struct {
	token   string
	chatID  string
	baseURL string
	client  *http.Client
	retry   retry.RetryConfig
	log     *slog.Logger
}

func New(token, chatID string, log *slog.Logger) *Notifier {
	if log == nil {
		log = slog.Default()
	}
	return &Notifier{
		token:   token,
		chatID:  chatID,
		baseURL: defaultBaseURL,
		client:  &http.Client{Timeout: 30 * time.Second},
		retry:   retry.RetryConfig{MaxAttempts: 3, Delay: 2 * time.Second, Backoff: true},
		log:     log,
	}
}

// SendMessage sends HTML text, retrying with linear backoff.
func (n *Notifier) SendMessage(ctx context.Context, text string) error {
	if len(text) > maxMessageLen {
		text = text[:maxMessageLen]
	}
	attempt := 0
	err := retry.WithRetry(ctx, n.retry, func() error {
		attempt++
		err := n.sendOnce(ctx, text)
		if err != nil {
			n.log.Warn("telegram send failed", "attempt", attempt, "error", err)
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	n.log.Debug("message sent to telegram", "attempt", attempt)
	return nil
}

func (n *Notifier) sendOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.token)

	payload := map[string]interface{}{
		"chat_id":                  n.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			n.log.Warn("failed to close response body", "error", err)
		}
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}

// SendRunSummary reports the per-source counts of an ingestion run.
func (n *Notifier) SendRunSummary(ctx context.Context, s metrics.Summary) error {
	return n.SendMessage(ctx, FormatRunSummary(s))
}

// PublishSelection lets the notifier stand next to the NATS publisher.
func (n *Notifier) PublishSelection(ctx context.Context, kind content.Kind, recs []content.Record) error {
	if len(recs) == 0 {
		return nil
	}
	return n.SendMessage(ctx, FormatSelection(kind, recs))
}

func FormatRunSummary(s metrics.Summary) string {
	var b strings.Builder
	t := s.Totals
	fmt.Fprintf(&b, "<b>Ingestion run</b> %s (%s)\n", s.StartedAt.UTC().Format("2006-01-02 15:04"), s.Duration().Round(time.Second))
	fmt.Fprintf(&b, "fetched %d, ingested %d, irrelevant %d, duplicates %d, failed %d\n",
		t.Fetched, t.Ingested, t.Irrelevant, t.Duplicates, t.Failed)

	for _, src := range s.Sources {
		if src.Error != "" {
			fmt.Fprintf(&b, "\n⚠️ <b>%s</b>: %s", html.EscapeString(src.Source), html.EscapeString(src.Error))
			continue
		}
		if src.Ingested == 0 && src.Failed == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n• %s: +%d", html.EscapeString(src.Source), src.Ingested)
		if src.Failed > 0 {
			fmt.Fprintf(&b, " (%d failed)", src.Failed)
		}
	}
	return b.String()
}

func FormatSelection(kind content.Kind, recs []content.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>New %s selection</b> (%d)\n", kind, len(recs))
	for _, r := range recs {
		fmt.Fprintf(&b, "\n[%s] <a href=\"%s\">%s</a>", html.EscapeString(string(r.Vertical)),
			html.EscapeString(r.SourceURL), html.EscapeString(r.Title))
		if r.MetricValue != "" {
			fmt.Fprintf(&b, " <b>%s</b>", html.EscapeString(r.MetricValue))
		}
	}
	return b.String()
}
