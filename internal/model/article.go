// Package model defines the records produced by the extraction pipeline and
// the digests they are persisted in.
package model

import "time"

// OutcomeStatus is the result of one provider attempt.
type OutcomeStatus string

const (
	OutcomeOK        OutcomeStatus = "ok"
	OutcomeError     OutcomeStatus = "error"
	OutcomeException OutcomeStatus = "exception"
	OutcomeTimeout   OutcomeStatus = "timeout"
	OutcomeSkipped   OutcomeStatus = "skipped"
	OutcomeEmpty     OutcomeStatus = "empty"
)

// IsFailure reports whether the status counts as a provider failure.
func (s OutcomeStatus) IsFailure() bool {
	return s == OutcomeError || s == OutcomeException
}

// ProviderOutcome records a single provider attempt against a URL.
type ProviderOutcome struct {
	Name       string        `json:"name"`
	Status     OutcomeStatus `json:"status"`
	StatusCode int           `json:"statusCode,omitempty"`
	Error      string        `json:"error,omitempty"`
	Reason     string        `json:"reason,omitempty"`
}

// Tier is the coarse confidence banding of a record.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
)

// Confidence is a record's score and its banding.
type Confidence struct {
	Score int    `json:"score"`
	Tier  Tier   `json:"tier"`
	Color string `json:"color"` // green, yellow, red
	Band  string `json:"band"`
	Emoji string `json:"emoji"`
}

// ArticleFields holds the content fields extracted for a URL. Every field is
// emptied when a record is redacted except Language.
type ArticleFields struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Author          string   `json:"author"`
	PublishedOn     string   `json:"published_on"`
	PublicationDate string   `json:"publication_date"`
	Body            string   `json:"body"`
	WordCount       int      `json:"word_count"`
	Publisher       string   `json:"publisher"`
	Language        string   `json:"language"`
	Tags            []string `json:"tags"`
	FinalURL        string   `json:"final_url,omitempty"`
}

// RawTrace carries execution detail that is never redacted.
type RawTrace struct {
	ProviderOutcomes []ProviderOutcome `json:"providerOutcomes"`
}

// ArticleRecord is the output of processing a single URL.
type ArticleRecord struct {
	URL        string     `json:"url"`
	Confidence Confidence `json:"confidence"`
	Reason     string     `json:"reason"`
	Provider   string     `json:"provider"`
	ArticleFields
	Provenance    map[string]string `json:"provenance"`
	ProvidersUsed []string          `json:"providersUsed"`
	Notes         []string          `json:"notes"`
	Redacted      bool              `json:"redacted"`
	Raw           RawTrace          `json:"raw"`
}

// RunMetadata summarizes a batch run.
type RunMetadata struct {
	StartedAt     time.Time `json:"startedAt"`
	DurationMs    int64     `json:"durationMs"`
	Total         int       `json:"total"`
	ProvidersUsed []string  `json:"providersUsed,omitempty"`
}

// RunResult is the output of a batch run.
type RunResult struct {
	Metadata RunMetadata     `json:"metadata"`
	Records  []ArticleRecord `json:"records"`
}
