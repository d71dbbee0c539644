package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/article-digest/internal/model"
)

func TestJSONStore_ReloadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digests.json")
	ctx := context.Background()

	s, err := NewJSON(path)
	require.NoError(t, err)
	saved, err := s.Save(ctx, sampleDigest("https://a.example/1"))
	require.NoError(t, err)

	reopened, err := NewJSON(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.Records[0].ID, got.Records[0].ID)
	assert.Equal(t, "https://a.example/1", got.Records[0].URL)
}

func TestJSONStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digests.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewJSON(path)
	require.NoError(t, err)
	list, err := s.List(context.Background(), ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestJSONStore_NormalizesOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digests.json")
	raw := `[{"id":"d1","createdAt":"2024-05-01T00:00:00Z","summary":{"total":1,"durationMs":5},
	"records":[{"url":"https://a.example","reviewStage":"archived","shortlisted":true}]}]`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o644))

	s, err := NewJSON(path)
	require.NoError(t, err)
	d, err := s.Get(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, "shortlisted", string(d.Records[0].ReviewStage))
	assert.NotEmpty(t, d.Records[0].ID)
	assert.Equal(t, 1, d.Summary.ShortlistedTotal)
}

func TestJSONStore_RequiresPath(t *testing.T) {
	_, err := NewJSON("")
	require.Error(t, err)
}

func TestJSONStore_GetReturnsCopy(t *testing.T) {
	s := newTestJSON(t)
	ctx := context.Background()
	saved, err := s.Save(ctx, sampleDigest("https://a.example/1"))
	require.NoError(t, err)

	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	got.Records[0].Shortlisted = true

	again, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.False(t, again.Records[0].Shortlisted)
}

func TestJSONStore_FailedWriteKeepsPreviousState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "digests.json")
	ctx := context.Background()

	s, err := NewJSON(path)
	require.NoError(t, err)
	saved, err := s.Save(ctx, sampleDigest("https://a.example/1"))
	require.NoError(t, err)

	// A directory in place of the temp file makes every write fail.
	require.NoError(t, os.Mkdir(path+".tmp", 0o755))

	_, err = s.Update(ctx, saved.ID, shortlist(saved.Records[0].ID, true))
	require.Error(t, err)
	got, err := s.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Summary.ShortlistedTotal)
	assert.False(t, got.Records[0].Shortlisted)

	_, err = s.Save(ctx, sampleDigest("https://a.example/2"))
	require.Error(t, err)
	require.Error(t, s.Clear(ctx))
	list, err := s.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, saved.ID, list[0].ID)

	require.NoError(t, os.Remove(path+".tmp"))
	reopened, err := NewJSON(path)
	require.NoError(t, err)
	onDisk, err := reopened.Get(ctx, saved.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, onDisk.Summary.ShortlistedTotal)
}

func TestJSONStore_ClearDuringUpdateSticks(t *testing.T) {
	s := newTestJSON(t)
	ctx := context.Background()
	saved, err := s.Save(ctx, sampleDigest("https://a.example/1"))
	require.NoError(t, err)

	mark := shortlist(saved.Records[0].ID, true)
	_, err = s.Update(ctx, saved.ID, func(d *model.Digest) (*model.Digest, error) {
		require.NoError(t, s.Clear(ctx))
		return mark(d)
	})
	require.Error(t, err)
	assert.True(t, eris.Is(err, model.ErrDigestNotFound))

	list, err := s.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}
