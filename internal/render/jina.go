package render

import (
	"context"
	"time"

	"github.com/sells-group/article-digest/pkg/jina"
)

type jinaBackend struct {
	client  jina.Client
	timeout time.Duration
}

func newJinaBackend(key, baseURL string, timeout time.Duration) *jinaBackend {
	var opts []jina.Option
	if baseURL != "" {
		opts = append(opts, jina.WithBaseURL(baseURL))
	}
	return &jinaBackend{client: jina.NewClient(key, opts...), timeout: timeout}
}

func (b *jinaBackend) fetch(ctx context.Context, url string) (*page, error) {
	resp, err := b.client.Read(ctx, url, jina.WithFormat(jina.FormatHTML), jina.WithRenderTimeout(b.timeout))
	if err != nil {
		return nil, err
	}
	status := resp.Status
	if status == 0 {
		status = resp.Code
	}
	return &page{HTML: resp.Data.HTML, FinalURL: resp.Data.URL, StatusCode: status}, nil
}

func (b *jinaBackend) close() { b.client.CloseIdleConnections() }
