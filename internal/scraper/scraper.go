package scraper

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"

	"github.com/deusflow/signalfeed/internal/content"
)

const userAgent = "signalfeed/1.0 (+content curation)"

// ArticleContent is full article content
type ArticleContent struct {
	Title   string
	Content string
	URL     string
}

// Scraper fetches article pages for items whose feed snippet is too short
// to enrich from.
type Scraper struct {
	client      *http.Client
	minSnippet  int
	concurrency int
	maxChars    int
	log         *slog.Logger
}

func New(client *http.Client, minSnippet, concurrency int, log *slog.Logger) *Scraper {
	if client == nil {
		client = &http.Client{}
	}
	if concurrency <= 0 {
		concurrency = 4
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scraper{client: client, minSnippet: minSnippet, concurrency: concurrency, maxChars: 1800, log: log}
}

// ExtractFullArticle gets full text of article by URL
func (s *Scraper) ExtractFullArticle(ctx context.Context, url string) (*ArticleContent, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error loading page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error parsing HTML: %w", err)
	}

	text := cleanContent(extractGenericContent(doc), s.maxChars)
	if text == "" {
		return nil, fmt.Errorf("can't get content")
	}

	return &ArticleContent{
		Title:   extractTitle(doc),
		Content: text,
		URL:     url,
	}, nil
}

// FillShort scrapes the page of every candidate whose summary and content are
// both shorter than the configured minimum and stores the text in Content.
// Failures leave the candidate untouched.
func (s *Scraper) FillShort(ctx context.Context, items []content.Candidate) int {
	sem := make(chan struct{}, s.concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	filled := 0

	for i := range items {
		if len(items[i].Summary) >= s.minSnippet || len(items[i].Content) >= s.minSnippet {
			continue
		}
		wg.Add(1)
		go func(c *content.Candidate) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			article, err := s.ExtractFullArticle(ctx, c.Link)
			if err != nil {
				s.log.Debug("scrape failed", "url", c.Link, "error", err)
				return
			}
			if len(article.Content) <= len(c.Summary) {
				return
			}
			c.Content = article.Content
			mu.Lock()
			filled++
			mu.Unlock()
		}(&items[i])
	}
	wg.Wait()
	return filled
}

// extractGenericContent is universal parser for any site
func extractGenericContent(doc *goquery.Document) string {
	doc.Find("script, style, nav, footer, aside, form, .newsletter, .related").Remove()

	var paragraphs []string
	selectors := []string{
		"article p",
		".article-body p",
		".post-content p",
		".entry-content p",
		".content p",
		"main p",
		"#content p",
		"p",
	}

	var best []string
	for _, selector := range selectors {
		paragraphs = paragraphs[:0]
		doc.Find(selector).Each(func(i int, s *goquery.Selection) {
			text := strings.TrimSpace(s.Text())
			if len(text) > 20 {
				paragraphs = append(paragraphs, text)
			}
		})
		if len(paragraphs) > len(best) {
			best = append(best[:0], paragraphs...)
		}
		if len(best) >= 3 { // enough for a summary
			break
		}
	}

	return strings.Join(best, "\n\n")
}

// extractTitle gets article title
func extractTitle(doc *goquery.Document) string {
	selectors := []string{
		"h1",
		"meta[property='og:title']",
		"title",
	}

	for _, selector := range selectors {
		sel := doc.Find(selector).First()
		title := strings.TrimSpace(sel.Text())
		if title == "" {
			title = strings.TrimSpace(sel.AttrOr("content", ""))
		}
		if title != "" {
			return title
		}
	}

	return ""
}

var junkIndicators = []string{
	"cookie", "subscribe to", "sign up for", "newsletter", "all rights reserved",
	"read more:", "related:", "advertisement", "privacy policy", "log in",
}

// cleanContent drops boilerplate paragraphs and keeps whole paragraphs up to maxChars.
func cleanContent(text string, maxChars int) string {
	var kept []string
	total := 0
	for _, p := range strings.Split(text, "\n\n") {
		p = strings.Join(strings.Fields(p), " ")
		if len(p) <= 30 {
			continue
		}
		lower := strings.ToLower(p)
		junk := false
		for _, indicator := range junkIndicators {
			if strings.Contains(lower, indicator) {
				junk = true
				break
			}
		}
		if junk {
			continue
		}
		if total > 0 && total+len(p) > maxChars {
			break
		}
		kept = append(kept, p)
		total += len(p) + 2
	}
	return strings.Join(kept, "\n\n")
}
