package model

import "time"

// ReviewStage is the human review label on a persisted record.
type ReviewStage string

const (
	StageAnalystReview   ReviewStage = "analyst_review"
	StageAwaitingManager ReviewStage = "awaiting_manager"
	StageNeedsRevision   ReviewStage = "needs_revision"
	StageShortlisted     ReviewStage = "shortlisted"
	StageSavedForLater   ReviewStage = "saved_for_later"
)

// ReviewStages lists every stage in display order. Any stage may move to any
// other.
func ReviewStages() []ReviewStage {
	return []ReviewStage{
		StageAnalystReview,
		StageAwaitingManager,
		StageNeedsRevision,
		StageShortlisted,
		StageSavedForLater,
	}
}

// IsReviewStage reports whether s is a known stage.
func IsReviewStage(s string) bool {
	for _, stage := range ReviewStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// NormalizeReviewStage returns s when valid, otherwise the stage implied by
// the shortlist flag.
func NormalizeReviewStage(s ReviewStage, shortlisted bool) ReviewStage {
	if IsReviewStage(string(s)) {
		return s
	}
	if shortlisted {
		return StageShortlisted
	}
	return StageAnalystReview
}

// HistoryEntry records one review change on a persisted record.
type HistoryEntry struct {
	Version     int         `json:"version"`
	EditedAt    time.Time   `json:"editedAt"`
	EditedBy    string      `json:"editedBy"`
	DiffKeys    []string    `json:"diffKeys"`
	ReviewStage ReviewStage `json:"reviewStage"`
	Shortlisted bool        `json:"shortlisted"`
	Notes       string      `json:"notes,omitempty"`
}

// PersistedRecord is an ArticleRecord promoted into a digest.
type PersistedRecord struct {
	ArticleRecord
	ID             string         `json:"id"`
	Shortlisted    bool           `json:"shortlisted"`
	ReviewStage    ReviewStage    `json:"reviewStage"`
	LastReviewedAt *time.Time     `json:"lastReviewedAt,omitempty"`
	History        []HistoryEntry `json:"history,omitempty"`
}

// DigestSummary aggregates a digest's records.
type DigestSummary struct {
	Total            int   `json:"total"`
	DurationMs       int64 `json:"durationMs"`
	ShortlistedTotal int   `json:"shortlistedTotal"`
}

// DigestMetadata describes who created a digest and how.
type DigestMetadata struct {
	Actor      string `json:"actor,omitempty"`
	CreatedVia string `json:"createdVia,omitempty"`
	Note       string `json:"note,omitempty"`
}

// Digest is a persisted batch of records from one run.
type Digest struct {
	ID        string            `json:"id"`
	CreatedAt time.Time         `json:"createdAt"`
	Summary   DigestSummary     `json:"summary"`
	Records   []PersistedRecord `json:"records"`
	Metadata  *DigestMetadata   `json:"metadata,omitempty"`
}

// CountShortlisted returns the number of shortlisted records.
func (d *Digest) CountShortlisted() int {
	n := 0
	for _, r := range d.Records {
		if r.Shortlisted {
			n++
		}
	}
	return n
}

// Record returns the record with the given id.
func (d *Digest) Record(id string) (*PersistedRecord, bool) {
	for i := range d.Records {
		if d.Records[i].ID == id {
			return &d.Records[i], true
		}
	}
	return nil, false
}

// NewDigest wraps run records as a digest ready to save. Records start in
// analyst review and unshortlisted; ids are assigned by the store.
func NewDigest(records []ArticleRecord, durationMs int64, meta *DigestMetadata) *Digest {
	d := &Digest{
		CreatedAt: time.Now().UTC(),
		Summary:   DigestSummary{Total: len(records), DurationMs: durationMs},
		Records:   make([]PersistedRecord, 0, len(records)),
		Metadata:  meta,
	}
	for _, r := range records {
		d.Records = append(d.Records, PersistedRecord{ArticleRecord: r, ReviewStage: StageAnalystReview})
	}
	return d
}
