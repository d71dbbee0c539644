package pipeline

import (
	"github.com/sells-group/article-digest/internal/extract"
	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/scorer"
)

// BuildRecord turns a finished extraction into an ArticleRecord: it applies
// the legacy fallback, scores the result, and redacts low-confidence
// records.
func BuildRecord(ec *extract.Context, sc *scorer.Scorer) model.ArticleRecord {
	extract.ApplyLegacyFallback(ec)
	snap := ec.Snapshot()

	rec := model.ArticleRecord{
		URL:           ec.URL,
		Reason:        buildReason(snap),
		Provider:      primaryProvider(snap),
		ArticleFields: snap.Fields,
		Provenance:    snap.Provenance,
		ProvidersUsed: snap.ProvidersUsed,
		Notes:         snap.Notes,
		Raw:           model.RawTrace{ProviderOutcomes: snap.Outcomes},
	}
	rec.Confidence = sc.Score(scorer.Input{
		Fields:           snap.Fields,
		Provenance:       snap.Provenance,
		ProvidersUsed:    snap.ProvidersUsed,
		Notes:            snap.Notes,
		Outcomes:         snap.Outcomes,
		ExpectedLanguage: ec.ExpectedLanguage,
	})
	if scorer.ShouldRedact(rec.Confidence) {
		scorer.Redact(&rec)
	}
	normalizeEmpty(&rec)
	return rec
}

// normalizeEmpty replaces nil collections so records always serialize
// arrays and objects.
func normalizeEmpty(rec *model.ArticleRecord) {
	if rec.Tags == nil {
		rec.Tags = []string{}
	}
	if rec.Provenance == nil {
		rec.Provenance = map[string]string{}
	}
	if rec.ProvidersUsed == nil {
		rec.ProvidersUsed = []string{}
	}
	if rec.Notes == nil {
		rec.Notes = []string{}
	}
	if rec.Raw.ProviderOutcomes == nil {
		rec.Raw.ProviderOutcomes = []model.ProviderOutcome{}
	}
}
