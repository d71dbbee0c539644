// Package review applies human review decisions to persisted digests.
package review

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/model"
)

// AnonymousActor is recorded when no reviewer identity is supplied.
const AnonymousActor = "anonymous"

const maxActorLen = 120

// Update is a review decision for one record. Nil fields keep their current
// values.
type Update struct {
	RecordID    string
	ReviewStage *string
	Shortlisted *bool
	Timestamp   time.Time
	Actor       string
	Notes       string
}

// Apply returns a copy of d with upd applied, plus the updated record. d is
// never modified. An unknown record id yields model.ErrRecordNotFound.
//
// When no stage is given the shortlist flag drives it: shortlisting moves
// the record to shortlisted, and un-shortlisting a shortlisted record moves
// it back to analyst_review.
func Apply(d *model.Digest, upd Update) (*model.Digest, *model.PersistedRecord, error) {
	idx := -1
	for i := range d.Records {
		if d.Records[i].ID == upd.RecordID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, nil, eris.Wrapf(model.ErrRecordNotFound, "review: record %s in digest %s", upd.RecordID, d.ID)
	}

	ts := upd.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	next := *d
	next.Records = make([]model.PersistedRecord, len(d.Records))
	copy(next.Records, d.Records)

	rec := next.Records[idx]
	rec.History = append([]model.HistoryEntry(nil), rec.History...)

	nextShortlisted := rec.Shortlisted
	if upd.Shortlisted != nil {
		nextShortlisted = *upd.Shortlisted
	}

	var nextStage model.ReviewStage
	switch {
	case upd.ReviewStage != nil:
		nextStage = model.NormalizeReviewStage(model.ReviewStage(*upd.ReviewStage), nextShortlisted)
	case nextShortlisted:
		nextStage = model.StageShortlisted
	case rec.ReviewStage == model.StageShortlisted:
		nextStage = model.StageAnalystReview
	default:
		nextStage = model.NormalizeReviewStage(rec.ReviewStage, nextShortlisted)
	}

	var diff []string
	if nextStage != rec.ReviewStage {
		diff = append(diff, "reviewStage")
	}
	if nextShortlisted != rec.Shortlisted {
		diff = append(diff, "shortlisted")
	}
	if len(diff) > 0 {
		rec.History = append(rec.History, model.HistoryEntry{
			Version:     len(rec.History) + 1,
			EditedAt:    ts,
			EditedBy:    ResolveActor(upd.Actor),
			DiffKeys:    diff,
			ReviewStage: nextStage,
			Shortlisted: nextShortlisted,
			Notes:       upd.Notes,
		})
	}

	rec.ReviewStage = nextStage
	rec.Shortlisted = nextShortlisted
	rec.LastReviewedAt = &ts
	next.Records[idx] = rec
	next.Summary.ShortlistedTotal = next.CountShortlisted()

	return &next, &next.Records[idx], nil
}

// Normalize repairs a digest in place: invalid stages are replaced, a
// missing total is filled from the record count, and the shortlist total is
// recomputed. Stores call it on every save and load.
func Normalize(d *model.Digest) {
	for i := range d.Records {
		r := &d.Records[i]
		r.ReviewStage = model.NormalizeReviewStage(r.ReviewStage, r.Shortlisted)
	}
	if d.Summary.Total <= 0 {
		d.Summary.Total = len(d.Records)
	}
	d.Summary.ShortlistedTotal = d.CountShortlisted()
}

// ResolveActor picks the first non-blank candidate, trimmed and cut to 120
// characters, or AnonymousActor.
func ResolveActor(candidates ...string) string {
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if r := []rune(c); len(r) > maxActorLen {
			c = string(r[:maxActorLen])
		}
		return c
	}
	return AnonymousActor
}
