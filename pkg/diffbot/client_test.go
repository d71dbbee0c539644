package diffbot

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArticle_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "tok", r.URL.Query().Get("token"))
		assert.Equal(t, "https://news.example/a?b=1", r.URL.Query().Get("url"))
		_, _ = w.Write([]byte(`{"objects":[{"title":"T","text":"one two","author":"A","date":"Mon, 01 Jan 2024",
			"siteName":"News","tags":["plain",{"label":"labelled","uri":"x"},{"uri":"nolabel"}]}]}`))
	}))
	defer srv.Close()

	got, err := NewClient("tok", WithEndpoint(srv.URL)).Article(context.Background(), "https://news.example/a?b=1")
	require.NoError(t, err)
	require.Len(t, got.Objects, 1)

	a := got.Objects[0]
	assert.Equal(t, "T", a.Title)
	assert.Equal(t, "News", a.SiteName)
	assert.Equal(t, []string{"plain", "labelled"}, a.Labels())
}

func TestArticle_HTTPError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewClient("bad", WithEndpoint(srv.URL)).Article(context.Background(), "https://a.example")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestTag_UnmarshalJSON(t *testing.T) {
	var tags []Tag
	require.NoError(t, json.Unmarshal([]byte(`["a", {"label":"b"}]`), &tags))
	assert.Equal(t, []Tag{{Label: "a"}, {Label: "b"}}, tags)
	assert.Error(t, json.Unmarshal([]byte(`[1]`), &tags))
}

func TestWithEndpoint_EmptyKeepsDefault(t *testing.T) {
	c := NewClient("t", WithEndpoint("")).(*httpClient)
	assert.Equal(t, DefaultEndpoint, c.endpoint)
}
