package store

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/article-digest/internal/config"
	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/review"
)

func newTestJSON(t *testing.T) DigestStore {
	t.Helper()
	s, err := NewJSON(filepath.Join(t.TempDir(), "data", "digests.json"))
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newTestSQLite(t *testing.T) DigestStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleDigest(urls ...string) *model.Digest {
	records := make([]model.ArticleRecord, 0, len(urls))
	for _, u := range urls {
		records = append(records, model.ArticleRecord{URL: u, Confidence: model.Confidence{Score: 85, Tier: model.TierHigh}})
	}
	return model.NewDigest(records, 1200, &model.DigestMetadata{Actor: "ana", CreatedVia: "cli"})
}

func shortlist(recordID string, v bool) UpdateFunc {
	return func(d *model.Digest) (*model.Digest, error) {
		next, _, err := review.Apply(d, review.Update{RecordID: recordID, Shortlisted: &v, Actor: "ana"})
		return next, err
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) DigestStore) {
	t.Run("SaveAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		in := sampleDigest("https://a.example/1", "https://a.example/2")
		in.Records[0].ReviewStage = "bogus"

		saved, err := s.Save(ctx, in)
		require.NoError(t, err)
		assert.NotEmpty(t, saved.ID)
		assert.Empty(t, in.ID, "input is not modified")
		for _, r := range saved.Records {
			assert.NotEmpty(t, r.ID)
			assert.Equal(t, model.StageAnalystReview, r.ReviewStage)
		}

		got, err := s.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, saved.ID, got.ID)
		assert.Equal(t, 2, got.Summary.Total)
		assert.Equal(t, int64(1200), got.Summary.DurationMs)
		assert.Equal(t, saved.Records[1].ID, got.Records[1].ID)
		require.NotNil(t, got.Metadata)
		assert.Equal(t, "ana", got.Metadata.Actor)
		assert.True(t, saved.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(context.Background(), "nope")
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrDigestNotFound))
	})

	t.Run("UpdateKeepsShortlistTotal", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		saved, err := s.Save(ctx, sampleDigest("https://a.example/1", "https://a.example/2"))
		require.NoError(t, err)

		updated, err := s.Update(ctx, saved.ID, shortlist(saved.Records[0].ID, true))
		require.NoError(t, err)
		assert.Equal(t, 1, updated.Summary.ShortlistedTotal)
		assert.Equal(t, model.StageShortlisted, updated.Records[0].ReviewStage)

		got, err := s.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.Summary.ShortlistedTotal)
		assert.Equal(t, got.CountShortlisted(), got.Summary.ShortlistedTotal)
		require.Len(t, got.Records[0].History, 1)
	})

	t.Run("UpdateErrorsLeaveDigest", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		saved, err := s.Save(ctx, sampleDigest("https://a.example/1"))
		require.NoError(t, err)

		_, err = s.Update(ctx, saved.ID, shortlist("missing-record", true))
		require.Error(t, err)
		assert.True(t, eris.Is(err, model.ErrRecordNotFound))

		_, err = s.Update(ctx, "missing-digest", shortlist("x", true))
		assert.True(t, eris.Is(err, model.ErrDigestNotFound))

		got, err := s.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, got.Summary.ShortlistedTotal)
		assert.Nil(t, got.Records[0].LastReviewedAt)
	})

	t.Run("ConcurrentUpdates", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		urls := []string{"https://a.example/1", "https://a.example/2", "https://a.example/3", "https://a.example/4"}
		saved, err := s.Save(ctx, sampleDigest(urls...))
		require.NoError(t, err)

		var wg sync.WaitGroup
		for _, r := range saved.Records {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				_, err := s.Update(ctx, saved.ID, shortlist(id, true))
				assert.NoError(t, err)
			}(r.ID)
		}
		wg.Wait()

		got, err := s.Get(ctx, saved.ID)
		require.NoError(t, err)
		assert.Equal(t, len(urls), got.Summary.ShortlistedTotal)
		for _, r := range got.Records {
			assert.True(t, r.Shortlisted)
		}
	})

	t.Run("ListNewestFirstAndClear", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		older := sampleDigest("https://a.example/old")
		older.CreatedAt = time.Now().UTC().Add(-time.Hour)
		newer := sampleDigest("https://a.example/new")

		o, err := s.Save(ctx, older)
		require.NoError(t, err)
		n, err := s.Save(ctx, newer)
		require.NoError(t, err)

		list, err := s.List(ctx, ListFilter{})
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, n.ID, list[0].ID)
		assert.Equal(t, o.ID, list[1].ID)

		list, err = s.List(ctx, ListFilter{Limit: 1, Offset: 1})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, o.ID, list[0].ID)

		list, err = s.List(ctx, ListFilter{Since: time.Now().UTC().Add(-time.Minute)})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, n.ID, list[0].ID)

		require.NoError(t, s.Clear(ctx))
		list, err = s.List(ctx, ListFilter{})
		require.NoError(t, err)
		assert.Empty(t, list)
	})
}

func TestJSONStore(t *testing.T) {
	storeTestSuite(t, newTestJSON)
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := Open(ctx, config.StoreConfig{Driver: "json", JSONPath: filepath.Join(dir, "d.json")})
	require.NoError(t, err)
	assert.IsType(t, &JSONStore{}, s)

	s, err = Open(ctx, config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(dir, "d.db")})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, config.StoreConfig{Driver: "mongo"})
	require.Error(t, err)
}

func TestPrepare_AssignsIDsAndNormalizes(t *testing.T) {
	d := &model.Digest{Records: []model.PersistedRecord{
		{ReviewStage: "", Shortlisted: true},
		{ID: "keep", ReviewStage: model.StageNeedsRevision},
	}}
	prepare(d)
	assert.NotEmpty(t, d.Records[0].ID)
	assert.Equal(t, model.StageShortlisted, d.Records[0].ReviewStage)
	assert.Equal(t, "keep", d.Records[1].ID)
	assert.Equal(t, 2, d.Summary.Total)
	assert.Equal(t, 1, d.Summary.ShortlistedTotal)
}
