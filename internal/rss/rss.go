package rss

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"sync"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/textutil"
)

// minContentForMarkdown is the body size below which content:encoded is ignored.
const minContentForMarkdown = 400

type Options struct {
	MaxItems         int
	Timeout          time.Duration
	BatchSize        int
	BatchPause       time.Duration
	DateRepairWindow time.Duration
}

// SourceResult is what one source produced in a run.
type SourceResult struct {
	Source Source
	Items  []content.Candidate
	Err    error
}

// Fetcher downloads and parses feeds in bounded parallel batches.
type Fetcher struct {
	opts      Options
	client    *http.Client
	converter *md.Converter
	log       *slog.Logger
	now       func() time.Time
	jitter    func(n int64) int64
}

func NewFetcher(opts Options, client *http.Client, log *slog.Logger) *Fetcher {
	if opts.MaxItems <= 0 {
		opts.MaxItems = 10
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = 5
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.DateRepairWindow <= 0 {
		opts.DateRepairWindow = 6 * time.Hour
	}
	if client == nil {
		client = &http.Client{}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		opts:      opts,
		client:    client,
		converter: md.NewConverter("", true, nil),
		log:       log,
		now:       time.Now,
		jitter:    rand.Int64N,
	}
}

// FetchAll fetches every source. A failing source is logged and yields an
// empty result with Err set; it never stops the others. Results keep the
// order of sources.
func (f *Fetcher) FetchAll(ctx context.Context, sources []Source) []SourceResult {
	results := make([]SourceResult, len(sources))
	ok := 0

	for start := 0; start < len(sources); start += f.opts.BatchSize {
		end := min(start+f.opts.BatchSize, len(sources))

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				items, err := f.FetchSource(ctx, sources[i])
				results[i] = SourceResult{Source: sources[i], Items: items, Err: err}
			}(i)
		}
		wg.Wait()

		for i := start; i < end; i++ {
			if results[i].Err != nil {
				f.log.Warn("feed failed", "source", sources[i].Name, "error", results[i].Err)
				continue
			}
			ok++
			f.log.Debug("feed loaded", "source", sources[i].Name, "items", len(results[i].Items))
		}

		if end < len(sources) && f.opts.BatchPause > 0 {
			select {
			case <-ctx.Done():
				for i := end; i < len(sources); i++ {
					results[i] = SourceResult{Source: sources[i], Err: ctx.Err()}
				}
				return results
			case <-time.After(f.opts.BatchPause):
			}
		}
	}

	f.log.Info("processed feeds", "ok", ok, "total", len(sources))
	return results
}

// FetchSource fetches and converts at most MaxItems items of one feed.
func (f *Fetcher) FetchSource(ctx context.Context, src Source) ([]content.Candidate, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	parser := gofeed.NewParser()
	parser.Client = f.client
	feed, err := parser.ParseURLWithContext(src.Endpoint, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Endpoint, err)
	}

	items := make([]content.Candidate, 0, min(len(feed.Items), f.opts.MaxItems))
	for _, it := range feed.Items {
		if len(items) >= f.opts.MaxItems {
			break
		}
		c, ok := f.candidate(src, it)
		if !ok {
			continue
		}
		items = append(items, c)
	}
	return items, nil
}

func (f *Fetcher) candidate(src Source, it *gofeed.Item) (content.Candidate, bool) {
	if it == nil {
		return content.Candidate{}, false
	}
	link := strings.TrimSpace(it.Link)
	if link == "" && strings.HasPrefix(it.GUID, "http") {
		link = strings.TrimSpace(it.GUID)
	}
	title := htmlToText(it.Title)
	if link == "" || title == "" {
		return content.Candidate{}, false
	}

	summary := htmlToText(it.Description)
	var body string
	if len(it.Content) >= minContentForMarkdown {
		if converted, err := f.converter.ConvertString(it.Content); err == nil {
			body = strings.TrimSpace(converted)
		}
		if summary == "" {
			summary = textutil.Prefix(htmlToText(it.Content), 500)
		}
	}

	published := it.PublishedParsed
	if published == nil {
		published = it.UpdatedParsed
	}

	return content.Candidate{
		Title:       title,
		Link:        link,
		Summary:     summary,
		Content:     body,
		SourceName:  src.Name,
		Vertical:    src.Vertical,
		Priority:    src.Priority,
		Kind:        src.Kind,
		PublishedAt: f.repairDate(published),
	}, true
}

// repairDate replaces missing, unparsable or future timestamps with a random
// instant inside the repair window, so such items spread out in recency order.
func (f *Fetcher) repairDate(t *time.Time) time.Time {
	now := f.now().UTC()
	if t != nil && !t.IsZero() && !t.After(now) {
		return t.UTC()
	}
	offset := time.Duration(f.jitter(int64(f.opts.DateRepairWindow)))
	return now.Add(-offset)
}

func htmlToText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if !strings.ContainsAny(s, "<&") {
		return strings.Join(strings.Fields(s), " ")
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.Join(strings.Fields(textutil.StripTags(s)), " ")
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}
