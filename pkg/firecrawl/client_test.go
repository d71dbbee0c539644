package firecrawl

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-api-key", WithBaseURL(srv.URL))
}

func TestScrape(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		wantHTML   string
		wantErr    bool
		wantStatus int
	}{
		{
			name: "happy path",
			handler: func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "/scrape", r.URL.Path)
				assert.Equal(t, "Bearer test-api-key", r.Header.Get("Authorization"))
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

				var req ScrapeRequest
				require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "https://news.example/a", req.URL)
				assert.Equal(t, []string{FormatHTML}, req.Formats)
				assert.False(t, req.OnlyMainContent)

				_ = json.NewEncoder(w).Encode(ScrapeResponse{
					Success: true,
					Data: PageData{
						HTML:     "<html><p>Hi</p></html>",
						Metadata: PageMetadata{Title: "A", URL: "https://news.example/a", StatusCode: 200},
					},
				})
			},
			wantHTML: "<html><p>Hi</p></html>",
		},
		{
			name: "auth error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"Unauthorized"}`))
			},
			wantErr:    true,
			wantStatus: 401,
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				_, _ = w.Write([]byte(`{"error":"boom"}`))
			},
			wantErr:    true,
			wantStatus: 500,
		},
		{
			name: "unsuccessful body",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"success":false,"error":"timed out"}`))
			},
			wantErr: true,
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{`))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestServer(t, tt.handler)
			resp, err := c.Scrape(context.Background(), ScrapeRequest{
				URL:     "https://news.example/a",
				Formats: []string{FormatHTML},
			})

			if tt.wantErr {
				require.Error(t, err)
				if tt.wantStatus != 0 {
					var apiErr *APIError
					require.ErrorAs(t, err, &apiErr)
					assert.Equal(t, tt.wantStatus, apiErr.StatusCode)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantHTML, resp.Data.HTML)
			assert.Equal(t, 200, resp.Data.Metadata.StatusCode)
		})
	}
}

func TestAPIError_Message(t *testing.T) {
	err := &APIError{StatusCode: 402, Body: "payment required"}
	assert.Equal(t, "firecrawl: HTTP 402: payment required", err.Error())
}
