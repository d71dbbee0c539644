package render

import (
	"context"
	"time"

	"github.com/sells-group/article-digest/pkg/firecrawl"
)

type firecrawlBackend struct {
	client  firecrawl.Client
	timeout time.Duration
}

func newFirecrawlBackend(key, baseURL string, timeout time.Duration) *firecrawlBackend {
	var opts []firecrawl.Option
	if baseURL != "" {
		opts = append(opts, firecrawl.WithBaseURL(baseURL))
	}
	return &firecrawlBackend{client: firecrawl.NewClient(key, opts...), timeout: timeout}
}

func (b *firecrawlBackend) fetch(ctx context.Context, url string) (*page, error) {
	resp, err := b.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     url,
		Formats: []string{firecrawl.FormatRawHTML},
		Timeout: int(b.timeout.Milliseconds()),
	})
	if err != nil {
		return nil, err
	}
	html := resp.Data.RawHTML
	if html == "" {
		html = resp.Data.HTML
	}
	finalURL := resp.Data.Metadata.URL
	if finalURL == "" {
		finalURL = resp.Data.Metadata.SourceURL
	}
	return &page{HTML: html, FinalURL: finalURL, StatusCode: resp.Data.Metadata.StatusCode}, nil
}

func (b *firecrawlBackend) close() { b.client.CloseIdleConnections() }
