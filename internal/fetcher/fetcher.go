// Package fetcher downloads web pages and documents with a browser user
// agent, per-host rate limiting, charset decoding, and block detection.
package fetcher

import (
	"context"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is sent when Options.UserAgent is empty.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// Options configures the HTTP fetcher.
type Options struct {
	UserAgent    string
	Timeout      time.Duration
	RatePerHost  float64
	Burst        int
	MaxBodyBytes int64
}

// Page is a fetched response.
type Page struct {
	URL         string
	FinalURL    string
	StatusCode  int
	ContentType string
	Body        []byte
	// HTML is Body decoded to UTF-8.
	HTML string
	// Block is set when the response is a bot wall instead of the article.
	Block *Block
}

// OK reports a 2xx response that was not blocked.
func (p *Page) OK() bool {
	return p.StatusCode >= 200 && p.StatusCode < 300 && p.Block == nil
}

// PageFetcher fetches a single URL.
type PageFetcher interface {
	Fetch(ctx context.Context, url string) (*Page, error)
}

// HTTPFetcher implements PageFetcher with net/http. It never retries: a
// failed fetch is reported once and the caller moves on.
type HTTPFetcher struct {
	client   *http.Client
	opts     Options
	limiters *hostLimiters
}

// New creates an HTTPFetcher, filling zero options with defaults.
func New(opts Options) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout == 0 {
		opts.Timeout = 20 * time.Second
	}
	if opts.RatePerHost <= 0 {
		opts.RatePerHost = 2
	}
	if opts.Burst <= 0 {
		opts.Burst = 2
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 20 << 20
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				DialContext:         (&net.Dialer{Timeout: 10 * time.Second}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: newHostLimiters(rate.Limit(opts.RatePerHost), opts.Burst),
	}
}

// UserAgent returns the user agent sent with every request.
func (f *HTTPFetcher) UserAgent() string { return f.opts.UserAgent }

// Fetch GETs rawURL. Non-2xx and blocked responses are returned as a Page
// with a nil error; only transport failures produce an error.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Page, error) {
	lim, host := f.limiters.forURL(rawURL)
	if err := lim.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetcher: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBodyBytes))
	if err != nil {
		return nil, eris.Wrap(err, "fetcher: read body")
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		lim.OnRateLimit(host)
	} else if resp.StatusCode < 400 {
		lim.OnSuccess()
	}

	page := &Page{
		URL:         rawURL,
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}
	page.HTML = DecodeHTML(page.ContentType, body)
	page.Block = InspectBlock(resp.StatusCode, resp.Header, page.HTML)
	return page, nil
}
