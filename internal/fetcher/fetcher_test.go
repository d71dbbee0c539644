package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
)

func newTestFetcher() *HTTPFetcher {
	return New(Options{UserAgent: "test-agent", Timeout: 5 * time.Second, RatePerHost: 1000, Burst: 100})
}

func TestFetch_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<html><body><p>Hello world, this is an article.</p></body></html>"))
	}))
	defer srv.Close()

	page, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/story")
	require.NoError(t, err)
	assert.True(t, page.OK())
	assert.Equal(t, 200, page.StatusCode)
	assert.Equal(t, srv.URL+"/story", page.FinalURL)
	assert.Contains(t, page.HTML, "Hello world")
}

func TestFetch_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/new", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("<html>moved</html>"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	page, err := newTestFetcher().Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new", page.FinalURL)
}

func TestFetch_Non2xxIsNotAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	page, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.False(t, page.OK())
	assert.Equal(t, 404, page.StatusCode)
}

func TestFetch_Blocked(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Cf-Ray", "abc")
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	page, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	require.NotNil(t, page.Block)
	assert.Equal(t, BlockCloudflare, page.Block.Type)
	assert.False(t, page.OK())
}

func TestFetch_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	_, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestFetch_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(Options{RatePerHost: 0.001, Burst: 1}).Fetch(ctx, "http://127.0.0.1:1/")
	assert.Error(t, err)
}

func TestFetch_DecodesLatin1(t *testing.T) {
	encoded, err := charmap.ISO8859_1.NewEncoder().String("<html><p>Café</p></html>")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		_, _ = w.Write([]byte(encoded))
	}))
	defer srv.Close()

	page, err := newTestFetcher().Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Contains(t, page.HTML, "Café")
}

func TestCharsetOf_MetaTag(t *testing.T) {
	body := []byte(`<html><head><meta charset="windows-1252"></head></html>`)
	assert.Equal(t, "windows-1252", charsetOf("text/html", body))
	assert.Equal(t, "", charsetOf("", []byte("<html></html>")))
}

func TestDecodeHTML_UnknownCharset(t *testing.T) {
	assert.Equal(t, "plain", DecodeHTML("text/html; charset=klingon", []byte("plain")))
}

func TestNew_Defaults(t *testing.T) {
	f := New(Options{})
	assert.Equal(t, DefaultUserAgent, f.UserAgent())
	assert.Equal(t, 20*time.Second, f.client.Timeout)
	assert.Equal(t, int64(20<<20), f.opts.MaxBodyBytes)
}
