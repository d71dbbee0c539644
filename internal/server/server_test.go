package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/pipeline"
	"github.com/sells-group/article-digest/internal/queue"
	"github.com/sells-group/article-digest/internal/store"
)

type fakeProcessor struct {
	gotURLs []string
	gotOpts pipeline.Options
	err     error
	events  []pipeline.Event
}

func (p *fakeProcessor) Process(_ context.Context, urls []string, opts pipeline.Options) (*model.RunResult, error) {
	p.gotURLs, p.gotOpts = urls, opts
	if p.err != nil {
		return nil, p.err
	}
	res := &model.RunResult{Metadata: model.RunMetadata{Total: len(urls)}}
	for _, u := range urls {
		res.Records = append(res.Records, model.ArticleRecord{URL: u})
	}
	return res, nil
}

func (p *fakeProcessor) Stream(_ context.Context, urls []string, opts pipeline.Options) (<-chan pipeline.Event, error) {
	p.gotURLs, p.gotOpts = urls, opts
	if p.err != nil {
		return nil, p.err
	}
	ch := make(chan pipeline.Event, len(p.events))
	for _, ev := range p.events {
		ch <- ev
	}
	close(ch)
	return ch, nil
}

type response struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

type testEnv struct {
	srv   *httptest.Server
	proc  *fakeProcessor
	store store.DigestStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	st, err := store.NewJSON(filepath.Join(dir, "digests.json"))
	require.NoError(t, err)
	proc := &fakeProcessor{}
	s := New(st, proc, queue.New(filepath.Join(dir, "queue.json")), pipeline.Options{ExpectedLanguage: "eng", WriteArtifacts: true}, nil)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, proc: proc, store: st}
}

func (e *testEnv) do(t *testing.T, method, path string, body any, headers ...string) (int, response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req, err := http.NewRequest(method, e.srv.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	resp, err := http.Get(env.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestProcess(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.do(t, http.MethodPost, "/api/process", map[string]any{
		"urls":    "https://a.example/1\nhttps://a.example/2",
		"options": map[string]any{"disableBrowser": true},
	})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, out.Success)
	assert.Equal(t, []string{"https://a.example/1", "https://a.example/2"}, env.proc.gotURLs)
	assert.True(t, env.proc.gotOpts.DisableBrowser)
	assert.Equal(t, "eng", env.proc.gotOpts.ExpectedLanguage)
	assert.False(t, env.proc.gotOpts.WriteArtifacts)

	var result model.RunResult
	require.NoError(t, json.Unmarshal(out.Data, &result))
	assert.Len(t, result.Records, 2)
}

func TestProcess_Validation(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.do(t, http.MethodPost, "/api/process", map[string]any{"urls": []string{}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "URLs array is required", out.Error)

	env.proc.err = eris.Wrap(model.ErrInvalidInput, "no valid urls")
	status, out = env.do(t, http.MethodPost, "/api/process", map[string]any{"urls": []string{"nope"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.False(t, out.Success)
	assert.Equal(t, "No valid URLs provided", out.Error)

	status, _ = env.do(t, http.MethodPost, "/api/process", "{not json")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestProcessStream_NDJSON(t *testing.T) {
	env := newTestEnv(t)
	idx := 0
	env.proc.events = []pipeline.Event{
		{Status: pipeline.EventStart, Total: 1},
		{Status: pipeline.EventProcessing, Index: &idx, URL: "https://a.example/1"},
		{Status: pipeline.EventRecord, Index: &idx, URL: "https://a.example/1", Record: &model.ArticleRecord{URL: "https://a.example/1"}},
		{Status: pipeline.EventComplete, Total: 1},
	}

	resp, err := http.Get(env.srv.URL + "/api/process-stream?urls=https://a.example/1&disableBrowser=1")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/x-ndjson", resp.Header.Get("Content-Type"))
	assert.True(t, env.proc.gotOpts.DisableBrowser)

	var statuses []pipeline.EventStatus
	sc := bufio.NewScanner(resp.Body)
	for sc.Scan() {
		var ev pipeline.Event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &ev))
		statuses = append(statuses, ev.Status)
	}
	assert.Equal(t, []pipeline.EventStatus{
		pipeline.EventStart, pipeline.EventProcessing, pipeline.EventRecord, pipeline.EventComplete,
	}, statuses)
}

func TestProcessStream_RequiresURLs(t *testing.T) {
	env := newTestEnv(t)
	status, out := env.do(t, http.MethodGet, "/api/process-stream", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "At least one URL is required", out.Error)
}

func createDigest(t *testing.T, env *testEnv) model.Digest {
	t.Helper()
	status, out := env.do(t, http.MethodPost, "/api/digests", map[string]any{
		"records": []map[string]any{
			{"url": "https://a.example/1", "title": "One"},
			{"url": "https://a.example/2", "title": "Two", "reviewStage": "bogus"},
		},
		"summary": map[string]any{"total": 2, "durationMs": 1200},
	}, HeaderReviewer, "  reviewer-7  ")
	require.Equal(t, http.StatusOK, status)

	var d model.Digest
	require.NoError(t, json.Unmarshal(out.Data, &d))
	return d
}

func TestCreateDigest(t *testing.T) {
	env := newTestEnv(t)
	d := createDigest(t, env)

	assert.NotEmpty(t, d.ID)
	require.Len(t, d.Records, 2)
	for _, r := range d.Records {
		assert.NotEmpty(t, r.ID)
		assert.Equal(t, model.StageAnalystReview, r.ReviewStage)
	}
	assert.Equal(t, int64(1200), d.Summary.DurationMs)
	require.NotNil(t, d.Metadata)
	assert.Equal(t, "reviewer-7", d.Metadata.Actor)
	assert.Equal(t, "api", d.Metadata.CreatedVia)
}

func TestCreateDigest_Validation(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.do(t, http.MethodPost, "/api/digests", map[string]any{"summary": map[string]any{"total": 1}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "records array is required", out.Error)

	status, out = env.do(t, http.MethodPost, "/api/digests", map[string]any{
		"records": []map[string]any{{"url": "https://a.example/1"}},
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "summary is required", out.Error)
}

func TestGetDigest(t *testing.T) {
	env := newTestEnv(t)
	d := createDigest(t, env)

	status, out := env.do(t, http.MethodGet, "/api/digests/"+d.ID, nil)
	require.Equal(t, http.StatusOK, status)
	var got model.Digest
	require.NoError(t, json.Unmarshal(out.Data, &got))
	assert.Equal(t, d.ID, got.ID)

	status, out = env.do(t, http.MethodGet, "/api/digests/missing", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Digest not found", out.Error)
}

func TestReviewRecord(t *testing.T) {
	env := newTestEnv(t)
	d := createDigest(t, env)
	recordPath := "/api/digests/" + d.ID + "/records/" + d.Records[0].ID

	status, out := env.do(t, http.MethodPatch, recordPath, map[string]any{"shortlisted": true}, HeaderActor, "editor")
	require.Equal(t, http.StatusOK, status)

	var res reviewResponse
	require.NoError(t, json.Unmarshal(out.Data, &res))
	assert.Equal(t, d.ID, res.DigestID)
	assert.Equal(t, model.StageShortlisted, res.Record.ReviewStage)
	assert.True(t, res.Record.Shortlisted)
	assert.Equal(t, 1, res.Summary.ShortlistedTotal)
	require.Len(t, res.Record.History, 1)
	assert.Equal(t, "editor", res.Record.History[0].EditedBy)

	status, out = env.do(t, http.MethodPatch, recordPath, map[string]any{"shortlisted": false})
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(out.Data, &res))
	assert.Equal(t, model.StageAnalystReview, res.Record.ReviewStage)
	assert.Equal(t, 0, res.Summary.ShortlistedTotal)
}

func TestReviewRecord_Validation(t *testing.T) {
	env := newTestEnv(t)
	d := createDigest(t, env)
	recordPath := "/api/digests/" + d.ID + "/records/" + d.Records[0].ID

	status, out := env.do(t, http.MethodPatch, recordPath, map[string]any{"reviewStage": "approved"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid review stage provided", out.Error)

	status, out = env.do(t, http.MethodPatch, recordPath, map[string]any{"shortlisted": "yes"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "shortlisted must be a boolean when provided", out.Error)

	status, out = env.do(t, http.MethodPatch, "/api/digests/"+d.ID+"/records/nope", map[string]any{"shortlisted": true})
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Record not found", out.Error)

	status, _ = env.do(t, http.MethodPatch, "/api/digests/nope/records/"+d.Records[0].ID, map[string]any{"shortlisted": true})
	assert.Equal(t, http.StatusNotFound, status)

	got, err := env.store.Get(context.Background(), d.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Summary.ShortlistedTotal)
	assert.Empty(t, got.Records[0].History)
}

func TestListAndClearDigests(t *testing.T) {
	env := newTestEnv(t)
	createDigest(t, env)
	createDigest(t, env)

	status, out := env.do(t, http.MethodGet, "/api/digests?limit=1", nil)
	require.Equal(t, http.StatusOK, status)
	var list []model.Digest
	require.NoError(t, json.Unmarshal(out.Data, &list))
	assert.Len(t, list, 1)

	status, _ = env.do(t, http.MethodGet, "/api/digests?limit=-2", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.do(t, http.MethodDelete, "/api/digests", nil)
	require.Equal(t, http.StatusOK, status)

	status, out = env.do(t, http.MethodGet, "/api/digests", nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(out.Data, &list))
	assert.Empty(t, list)
}

func TestQueueEndpoints(t *testing.T) {
	env := newTestEnv(t)

	status, out := env.do(t, http.MethodPost, "/api/queue", map[string]any{
		"urls": []string{"https://a.example/1#top", "https://a.example/1", "not a url"},
	}, HeaderActor, "slack-bot")
	require.Equal(t, http.StatusOK, status)

	var results []queue.EnqueueResult
	require.NoError(t, json.Unmarshal(out.Data, &results))
	require.Len(t, results, 3)
	assert.True(t, results[0].Added)
	assert.Equal(t, "slack-bot", results[0].Entry.SubmittedBy)
	assert.Equal(t, "api", results[0].Entry.Source)
	assert.Equal(t, queue.ReasonDuplicate, results[1].Reason)
	assert.Equal(t, queue.ReasonInvalidURL, results[2].Reason)

	status, out = env.do(t, http.MethodGet, "/api/queue", nil)
	require.Equal(t, http.StatusOK, status)
	var listing struct {
		Pending     []queue.Entry `json:"pending"`
		QueueLength int           `json:"queueLength"`
	}
	require.NoError(t, json.Unmarshal(out.Data, &listing))
	assert.Equal(t, 1, listing.QueueLength)
}
