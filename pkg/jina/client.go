// Package jina provides a client for the Jina AI Reader, which loads a page
// in a hosted headless browser and returns its rendered content.
package jina

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

// Return formats accepted by the reader.
const (
	FormatHTML     = "html"
	FormatMarkdown = "markdown"
	FormatText     = "text"
)

// Client defines the Jina AI Reader operations.
type Client interface {
	// Read fetches targetURL through the reader.
	Read(ctx context.Context, targetURL string, opts ...ReadOption) (*ReadResponse, error)
	// CloseIdleConnections releases pooled connections.
	CloseIdleConnections()
}

// ReadResponse is the parsed reader response.
type ReadResponse struct {
	Code   int      `json:"code"`
	Status int      `json:"status"`
	Data   ReadData `json:"data"`
}

// ReadData holds the page content. Content carries the requested format;
// HTML is filled when the reader returns markup alongside it.
type ReadData struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Content     string    `json:"content"`
	HTML        string    `json:"html"`
	Text        string    `json:"text"`
	Usage       ReadUsage `json:"usage"`
}

// ReadUsage tracks token consumption.
type ReadUsage struct {
	Tokens int `json:"tokens"`
}

// APIError is returned when the reader responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("jina: HTTP %d: %s", e.StatusCode, e.Body)
}

// ReadOption configures a single read.
type ReadOption func(*readOpts)

type readOpts struct {
	format  string
	timeout time.Duration
}

// WithFormat selects the return format (default html).
func WithFormat(format string) ReadOption {
	return func(o *readOpts) { o.format = format }
}

// WithRenderTimeout bounds how long the reader waits for the page to settle.
func WithRenderTimeout(d time.Duration) ReadOption {
	return func(o *readOpts) { o.timeout = d }
}

// Option configures the Jina client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a reader client. apiKey may be empty for anonymous use.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: "https://r.jina.ai",
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Read(ctx context.Context, targetURL string, opts ...ReadOption) (*ReadResponse, error) {
	ro := &readOpts{format: FormatHTML}
	for _, opt := range opts {
		opt(ro)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create request")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Return-Format", ro.format)
	if ro.timeout > 0 {
		req.Header.Set("X-Timeout", strconv.Itoa(int(ro.timeout.Seconds())))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "jina: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "jina: read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ReadResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal response")
	}
	if ro.format == FormatHTML && result.Data.HTML == "" {
		result.Data.HTML = result.Data.Content
	}
	return &result, nil
}

func (c *httpClient) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}
