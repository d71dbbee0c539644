package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/article-digest/internal/model"
)

func TestBuildReviewUpdate(t *testing.T) {
	upd, err := buildReviewUpdate("rec-1", "needs_revision", "", "ana", "")
	require.NoError(t, err)
	require.NotNil(t, upd.ReviewStage)
	assert.Equal(t, "needs_revision", *upd.ReviewStage)
	assert.Nil(t, upd.Shortlisted)
	assert.Equal(t, "ana", upd.Actor)

	upd, err = buildReviewUpdate("rec-1", "", "true", "ana", "good pick")
	require.NoError(t, err)
	require.NotNil(t, upd.Shortlisted)
	assert.True(t, *upd.Shortlisted)
	assert.Equal(t, "good pick", upd.Notes)
}

func TestBuildReviewUpdate_Invalid(t *testing.T) {
	tests := []struct {
		name, stage, shortlisted string
	}{
		{"unknown stage", "approved", ""},
		{"bad bool", "", "maybe"},
		{"nothing to change", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := buildReviewUpdate("rec-1", tt.stage, tt.shortlisted, "ana", "")
			require.Error(t, err)
			assert.True(t, eris.Is(err, model.ErrInvalidInput))
		})
	}
}

func TestFormatDigestList(t *testing.T) {
	created := time.Date(2024, 5, 2, 9, 30, 0, 0, time.UTC)
	digests := []model.Digest{
		{ID: "d-1", CreatedAt: created, Summary: model.DigestSummary{Total: 4, ShortlistedTotal: 1}, Metadata: &model.DigestMetadata{Actor: "ana"}},
		{ID: "d-2", CreatedAt: created.Add(-time.Hour), Summary: model.DigestSummary{Total: 2}},
	}

	var buf bytes.Buffer
	formatDigestList(&buf, digests)
	out := buf.String()
	assert.Contains(t, out, "SHORTLISTED")
	assert.Contains(t, out, "d-1")
	assert.Contains(t, out, "2024-05-02 09:30")
	assert.Contains(t, out, "ana")
	assert.Contains(t, out, "d-2")
}
