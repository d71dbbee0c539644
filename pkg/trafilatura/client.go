// Package trafilatura provides a client for a self-hosted trafilatura
// extraction service.
package trafilatura

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Client defines the extraction service operations.
type Client interface {
	Extract(ctx context.Context, req ExtractRequest) (*ExtractResponse, error)
}

// ExtractRequest is the POST body. HTML may be empty, in which case the
// service fetches URL itself.
type ExtractRequest struct {
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

// ExtractResponse is what the service returns.
type ExtractResponse struct {
	Title           string   `json:"title"`
	Author          string   `json:"author"`
	Date            string   `json:"date"`
	PublicationDate string   `json:"publication_date"`
	Language        string   `json:"language"`
	Text            string   `json:"text"`
	Tags            []string `json:"tags"`
}

// PublishedAt returns Date, falling back to PublicationDate.
func (r *ExtractResponse) PublishedAt() string {
	if r.Date != "" {
		return r.Date
	}
	return r.PublicationDate
}

// APIError is returned when the service responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("trafilatura: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a client that POSTs to endpoint.
func NewClient(endpoint string, opts ...Option) Client {
	c := &httpClient{
		endpoint: endpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Extract(ctx context.Context, in ExtractRequest) (*ExtractResponse, error) {
	buf, err := json.Marshal(in)
	if err != nil {
		return nil, eris.Wrap(err, "trafilatura: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(buf))
	if err != nil {
		return nil, eris.Wrap(err, "trafilatura: create request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "trafilatura: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "trafilatura: read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var out ExtractResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "trafilatura: unmarshal response")
	}
	return &out, nil
}
