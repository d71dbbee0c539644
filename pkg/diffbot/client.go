// Package diffbot provides a client for the Diffbot Article API.
package diffbot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
)

// DefaultEndpoint is the v3 Article API.
const DefaultEndpoint = "https://api.diffbot.com/v3/article"

// Client defines the Diffbot operations in use.
type Client interface {
	// Article asks Diffbot to extract the article at targetURL.
	Article(ctx context.Context, targetURL string) (*ArticleResponse, error)
}

// ArticleResponse is the parsed Article API response.
type ArticleResponse struct {
	Objects []Article `json:"objects"`
}

// Article is one extracted article object.
type Article struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	Author   string `json:"author"`
	Date     string `json:"date"`
	SiteName string `json:"siteName"`
	PageURL  string `json:"pageUrl"`
	Language string `json:"humanLanguage"`
	Tags     []Tag  `json:"tags"`
}

// Tag is an article tag. The API sends either a bare string or an object
// with a label.
type Tag struct {
	Label string `json:"label"`
	URI   string `json:"uri,omitempty"`
}

// UnmarshalJSON accepts both tag shapes.
func (t *Tag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &t.Label)
	}
	type plain Tag
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = Tag(p)
	return nil
}

// Labels returns the non-empty tag labels.
func (a Article) Labels() []string {
	var out []string
	for _, t := range a.Tags {
		if t.Label != "" {
			out = append(out, t.Label)
		}
	}
	return out
}

// APIError is returned when Diffbot responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("diffbot: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithEndpoint overrides DefaultEndpoint.
func WithEndpoint(endpoint string) Option {
	return func(c *httpClient) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	token    string
	endpoint string
	http     *http.Client
}

// NewClient creates a Diffbot client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:    token,
		endpoint: DefaultEndpoint,
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Article(ctx context.Context, targetURL string) (*ArticleResponse, error) {
	q := url.Values{}
	q.Set("token", c.token)
	q.Set("url", targetURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "diffbot: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "diffbot: request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "diffbot: read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result ArticleResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "diffbot: unmarshal response")
	}
	return &result, nil
}
