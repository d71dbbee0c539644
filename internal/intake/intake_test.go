package intake

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/article-digest/internal/fetcher"
)

const rssFeed = `<?xml version="1.0"?>
<rss version="2.0"><channel><title>News</title>
<item><title>One</title><link>https://example.com/one</link></item>
<item><title>Two</title><link>https://example.com/two</link></item>
<item><title>Dup</title><link>https://example.com/one</link></item>
<item><title>Three</title><link>https://example.com/three</link></item>
</channel></rss>`

func TestParseList(t *testing.T) {
	text := "https://a.example/1\n\n  # comment\nhttps://a.example/2 https://a.example/3\r\n"
	assert.Equal(t, []string{"https://a.example/1", "https://a.example/2", "https://a.example/3"}, ParseList(text))
	assert.Empty(t, ParseList("   \n"))
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://a.example/1\nhttps://a.example/2\n"), 0o644))

	urls, err := ReadFile(path)
	require.NoError(t, err)
	assert.Len(t, urls, 2)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.txt"))
	require.Error(t, err)
}

func TestFeedReader_Links(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		_, _ = w.Write([]byte(rssFeed))
	}))
	defer srv.Close()

	r := NewFeedReader(fetcher.New(fetcher.Options{}))
	links, err := r.Links(context.Background(), srv.URL, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/one", "https://example.com/two", "https://example.com/three"}, links)

	links, err = r.Links(context.Background(), srv.URL, 2)
	require.NoError(t, err)
	assert.Len(t, links, 2)
}

func TestFeedReader_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewFeedReader(fetcher.New(fetcher.Options{})).Links(context.Background(), srv.URL, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 404")
}

func TestFeedLinks_FallsBackToLinks(t *testing.T) {
	feed := &gofeed.Feed{Items: []*gofeed.Item{
		nil,
		{Links: []string{"https://example.com/atom"}},
		{Link: "  "},
	}}
	assert.Equal(t, []string{"https://example.com/atom"}, FeedLinks(feed, 0))
}
