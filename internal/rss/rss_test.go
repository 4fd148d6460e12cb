package rss

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deusflow/signalfeed/internal/content"
	"github.com/deusflow/signalfeed/internal/logger"
)

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/">
<channel>
<title>Test</title>
<item>
  <title>Acme Launches AI Ad Platform</title>
  <link>https://news.test/acme</link>
  <description><![CDATA[<p>Acme unveiled an <b>ad platform</b> for brands.</p>]]></description>
  <pubDate>Mon, 03 Mar 2025 10:00:00 GMT</pubDate>
</item>
<item>
  <title>Future dated</title>
  <link>https://news.test/future</link>
  <description>Scheduled post</description>
  <pubDate>Mon, 01 Jan 2035 10:00:00 GMT</pubDate>
</item>
<item>
  <title>No date</title>
  <link>https://news.test/nodate</link>
  <description>Missing pubDate</description>
</item>
<item>
  <title></title>
  <link>https://news.test/untitled</link>
</item>
<item>
  <title>Long body</title>
  <link>https://news.test/long</link>
  <content:encoded><![CDATA[<h2>Heading</h2><p>%s</p>]]></content:encoded>
  <pubDate>Mon, 03 Mar 2025 09:00:00 GMT</pubDate>
</item>
</channel>
</rss>`

func testFetcher(opts Options) *Fetcher {
	f := NewFetcher(opts, nil, logger.Discard())
	f.now = func() time.Time { return time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC) }
	f.jitter = func(n int64) int64 { return n / 2 }
	return f
}

func feedServer(t *testing.T) *httptest.Server {
	body := fmt.Sprintf(feedXML, strings.Repeat("Marketers are shifting budget to retail media. ", 12))
	mux := http.NewServeMux()
	mux.HandleFunc("/feed", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, body)
	})
	mux.HandleFunc("/broken", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchSourceConvertsItems(t *testing.T) {
	srv := feedServer(t)
	f := testFetcher(Options{MaxItems: 10})
	src := Source{Name: "Test", Endpoint: srv.URL + "/feed", Priority: content.PriorityHigh, Kind: content.KindArticle}

	items, err := f.FetchSource(context.Background(), src)
	require.NoError(t, err)
	require.Len(t, items, 4, "untitled item is dropped")

	first := items[0]
	assert.Equal(t, "Acme Launches AI Ad Platform", first.Title)
	assert.Equal(t, "Acme unveiled an ad platform for brands.", first.Summary)
	assert.Equal(t, "Test", first.SourceName)
	assert.Equal(t, content.PriorityHigh, first.Priority)
	assert.Equal(t, time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC), first.PublishedAt)

	repaired := f.now().Add(-3 * time.Hour)
	assert.Equal(t, repaired, items[1].PublishedAt, "future date is repaired")
	assert.Equal(t, repaired, items[2].PublishedAt, "missing date is repaired")

	long := items[3]
	assert.Contains(t, long.Content, "## Heading")
	assert.NotEmpty(t, long.Summary)
}

func TestFetchSourceRespectsMaxItems(t *testing.T) {
	srv := feedServer(t)
	f := testFetcher(Options{MaxItems: 2})
	items, err := f.FetchSource(context.Background(), Source{Name: "Test", Endpoint: srv.URL + "/feed"})
	require.NoError(t, err)
	assert.Len(t, items, 2)
}

func TestFetchAllIsolatesFailures(t *testing.T) {
	srv := feedServer(t)
	f := testFetcher(Options{BatchSize: 1, BatchPause: time.Millisecond})
	sources := []Source{
		{Name: "Broken", Endpoint: srv.URL + "/broken"},
		{Name: "Good", Endpoint: srv.URL + "/feed"},
	}

	results := f.FetchAll(context.Background(), sources)
	require.Len(t, results, 2)
	assert.Error(t, results[0].Err)
	assert.Empty(t, results[0].Items)
	assert.NoError(t, results[1].Err)
	assert.NotEmpty(t, results[1].Items)
}

func TestFetchSourceTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer slow.Close()

	f := testFetcher(Options{Timeout: 50 * time.Millisecond})
	_, err := f.FetchSource(context.Background(), Source{Name: "Slow", Endpoint: slow.URL})
	assert.Error(t, err)
}

func TestLoadFeeds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
feeds:
  - name: Adweek
    endpoint: https://www.adweek.com/feed/
    vertical: Technology and Media
    priority: high
  - name: eMarketer Stats
    endpoint: https://example.com/stats.xml
    kind: metric
`), 0o644))

	sources, err := LoadFeeds(path)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, content.VerticalTechMedia, sources[0].Vertical)
	assert.Equal(t, content.PriorityHigh, sources[0].Priority)
	assert.Equal(t, content.KindArticle, sources[0].Kind)
	assert.Equal(t, content.KindMetric, sources[1].Kind)
	assert.Equal(t, content.PriorityMedium, sources[1].Priority)
}

func TestLoadFeedsRejectsBadEntries(t *testing.T) {
	_, err := parseFeeds([]feedEntry{{Name: "x"}})
	assert.Error(t, err)
	_, err = parseFeeds([]feedEntry{{Name: "x", Endpoint: "e", Vertical: "Crypto"}})
	assert.Error(t, err)
	_, err = parseFeeds([]feedEntry{{Name: "x", Endpoint: "e"}, {Name: "x", Endpoint: "f"}})
	assert.Error(t, err)
}
