package trafilatura

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtract_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req ExtractRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "https://news.example/a", req.URL)
		assert.Equal(t, "<html></html>", req.HTML)

		_, _ = w.Write([]byte(`{"title":"T","author":"A","publication_date":"2024-01-02","language":"en","text":"x y","tags":["t"]}`))
	}))
	defer srv.Close()

	got, err := NewClient(srv.URL).Extract(context.Background(), ExtractRequest{URL: "https://news.example/a", HTML: "<html></html>"})
	require.NoError(t, err)
	assert.Equal(t, "T", got.Title)
	assert.Equal(t, "2024-01-02", got.PublishedAt())
	assert.Equal(t, []string{"t"}, got.Tags)
}

func TestExtract_PrefersDate(t *testing.T) {
	r := &ExtractResponse{Date: "d1", PublicationDate: "d2"}
	assert.Equal(t, "d1", r.PublishedAt())
}

func TestExtract_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).Extract(context.Background(), ExtractRequest{URL: "https://a.example"})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
}
