// Package render implements extract.Renderer on top of hosted headless
// browser services.
package render

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/extract"
	"github.com/sells-group/article-digest/internal/resilience"
)

// Backend names accepted by New.
const (
	BackendJina      = "jina"
	BackendFirecrawl = "firecrawl"
	BackendNone      = "none"
)

// page is what a backend returns for one URL.
type page struct {
	HTML       string
	FinalURL   string
	StatusCode int
}

// backend fetches one rendered page.
type backend interface {
	fetch(ctx context.Context, url string) (*page, error)
	close()
}

// Renderer bounds each render with a timeout and a circuit breaker.
type Renderer struct {
	name    string
	backend backend
	timeout time.Duration
	breaker *resilience.CircuitBreaker
}

func newRenderer(name string, b backend, timeout time.Duration, breaker resilience.BreakerConfig) *Renderer {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Renderer{
		name:    name,
		backend: b,
		timeout: timeout,
		breaker: resilience.NewCircuitBreaker("render:"+name, breaker),
	}
}

// Name returns the backend name.
func (r *Renderer) Name() string { return r.name }

// Render loads url and reports the outcome in the result status. The error
// return is reserved for failures outside the page load itself.
func (r *Renderer) Render(ctx context.Context, url string) (extract.RenderResult, error) {
	rctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	p, err := resilience.ExecuteVal(rctx, r.breaker, func(ctx context.Context) (*page, error) {
		return r.backend.fetch(ctx, url)
	})
	if err != nil {
		status := extract.RenderError
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(rctx.Err(), context.DeadlineExceeded) {
			status = extract.RenderTimeout
		}
		return extract.RenderResult{Status: status, StatusCode: statusOf(err), Error: err.Error()}, nil
	}
	if p == nil || strings.TrimSpace(p.HTML) == "" {
		return extract.RenderResult{
			Status:     extract.RenderError,
			StatusCode: pageStatus(p),
			Error:      "empty render",
		}, nil
	}

	finalURL := p.FinalURL
	if finalURL == "" {
		finalURL = url
	}
	status := extract.RenderOK
	errMsg := ""
	if p.StatusCode >= 400 {
		status = extract.RenderError
		errMsg = fmt.Sprintf("status %d", p.StatusCode)
	}
	return extract.RenderResult{
		Status:     status,
		HTML:       p.HTML,
		Text:       extract.VisibleText(p.HTML),
		FinalURL:   finalURL,
		StatusCode: p.StatusCode,
		Error:      errMsg,
	}, nil
}

// Close releases the backend's pooled connections.
func (r *Renderer) Close() error {
	r.backend.close()
	return nil
}

func pageStatus(p *page) int {
	if p == nil {
		return 0
	}
	return p.StatusCode
}

// Options configures New.
type Options struct {
	Backend      string
	Timeout      time.Duration
	JinaKey      string
	JinaURL      string
	FirecrawlKey string
	FirecrawlURL string
	Breaker      resilience.BreakerConfig
}

// New builds the configured Renderer. It returns nil for BackendNone and for
// firecrawl without a key, meaning no renderer is available.
func New(opts Options) (*Renderer, error) {
	switch strings.ToLower(opts.Backend) {
	case "", BackendNone:
		return nil, nil
	case BackendJina:
		return newRenderer(BackendJina, newJinaBackend(opts.JinaKey, opts.JinaURL, opts.Timeout), opts.Timeout, opts.Breaker), nil
	case BackendFirecrawl:
		if opts.FirecrawlKey == "" {
			return nil, nil
		}
		return newRenderer(BackendFirecrawl, newFirecrawlBackend(opts.FirecrawlKey, opts.FirecrawlURL, opts.Timeout), opts.Timeout, opts.Breaker), nil
	default:
		return nil, eris.Errorf("render: unknown backend %q", opts.Backend)
	}
}
