// Package scorer computes a record's confidence score, its tier, and the
// redaction that follows from a low tier.
package scorer

import (
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/model"
)

// Scoring modes.
const (
	ModeWeighted = "weighted"
	ModeBounded  = "bounded"
)

// Scoring constants.
const (
	HighThreshold          = 80
	WeightedLowThreshold   = 40
	BoundedLowThreshold    = 45
	defaultBoundedLang     = "eng"
	minBodyChars           = 200
	preferredWordCount     = 300
	crossProviderBonus     = 5
	weightedOutcomePenalty = 2
	weightedNotePenalty    = 3
	languagePenalty        = 10
)

// fieldWeights are the weighted-mode points per field. They sum to 100.
var fieldWeights = struct {
	Title, Description, Author, PublishedOn, PublicationDate, Body, WordCount float64
}{20, 15, 15, 10, 10, 25, 5}

var (
	weightedConcern = regexp.MustCompile(`(?i)failed|error|blocked`)
	boundedConcern  = regexp.MustCompile(`(?i)failed|error|blocked|timeout`)
)

// Input is everything the scorer reads about one extraction.
type Input struct {
	Fields           model.ArticleFields
	Provenance       map[string]string
	ProvidersUsed    []string
	Notes            []string
	Outcomes         []model.ProviderOutcome
	ExpectedLanguage string
}

// Scorer scores extractions in one mode.
type Scorer struct {
	mode string
}

// New returns a Scorer for mode. An empty mode is weighted.
func New(mode string) (*Scorer, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", ModeWeighted:
		return &Scorer{mode: ModeWeighted}, nil
	case ModeBounded:
		return &Scorer{mode: ModeBounded}, nil
	default:
		return nil, eris.Wrapf(model.ErrInvalidInput, "scorer: unknown mode %q", mode)
	}
}

// Mode returns the scoring mode.
func (s *Scorer) Mode() string { return s.mode }

// LowThreshold is the score below which a record is tiered low.
func (s *Scorer) LowThreshold() int {
	if s.mode == ModeBounded {
		return BoundedLowThreshold
	}
	return WeightedLowThreshold
}

// Score computes the confidence for in.
func (s *Scorer) Score(in Input) model.Confidence {
	var score int
	if s.mode == ModeBounded {
		score = Bounded(in)
	} else {
		score = Weighted(in)
	}
	return Classify(score, s.LowThreshold())
}

// Weighted scores field presence against fixed weights, adjusts for
// cross-provider agreement and reported failures, and returns a percentage
// in [0, 100].
func Weighted(in Input) int {
	f := in.Fields
	w := fieldWeights
	maxScore := w.Title + w.Description + w.Author + w.PublishedOn + w.PublicationDate + w.Body + w.WordCount

	var score float64
	score += present(f.Title, w.Title)
	score += present(f.Description, w.Description)
	score += present(f.Author, w.Author)
	score += present(f.PublishedOn, w.PublishedOn)
	score += present(f.PublicationDate, w.PublicationDate)

	switch n := utf8.RuneCountInString(f.Body); {
	case n >= minBodyChars:
		score += w.Body
	case n > 0:
		score += w.Body * 0.5
	}

	switch {
	case f.WordCount >= preferredWordCount:
		score += w.WordCount
	case f.WordCount > 0:
		score += w.WordCount * float64(f.WordCount) / preferredWordCount
	}

	if distinctProviders(in.Provenance) > 1 {
		score += crossProviderBonus
	}
	score -= float64(weightedOutcomePenalty * countOutcomes(in.Outcomes, model.OutcomeError, model.OutcomeException))
	score -= float64(weightedNotePenalty * countNotes(in.Notes, weightedConcern))

	if in.ExpectedLanguage != "" && f.Language != "" && f.Language != in.ExpectedLanguage {
		score -= languagePenalty
	}

	return clamp(int(math.Round(score/maxScore*100)), 0, 100)
}

// Bounded starts from a base of 35, adds and subtracts per signal, and
// clamps the result to [5, 95].
func Bounded(in Input) int {
	f := in.Fields
	score := 35

	score += ifElse(f.Title != "", 15, -12)
	score += ifElse(f.Description != "", 10, -8)
	score += ifElse(f.Author != "", 6, 0)
	score += ifElse(f.PublishedOn != "", 8, 0)
	score += ifElse(f.PublicationDate != "", 10, 0)
	score += ifElse(f.Body != "", 12, -20)

	switch wc := f.WordCount; {
	case wc >= 800:
		score += 12
	case wc >= 400:
		score += 8
	case wc >= 200:
		score += 5
	case wc > 50:
		score -= 5
	case wc > 0:
		score -= 12
	}

	if len(f.Tags) >= 3 {
		score += 4
	}

	expected := in.ExpectedLanguage
	if expected == "" {
		expected = defaultBoundedLang
	}
	if f.Language != "" && f.Language != expected {
		score -= languagePenalty
	}

	if n := len(in.ProvidersUsed); n > 1 {
		score += min(8, 2*n)
	}

	score -= 6 * countOutcomes(in.Outcomes, model.OutcomeError, model.OutcomeException)
	score -= 8 * countOutcomes(in.Outcomes, model.OutcomeTimeout)
	score -= 4 * countNotes(in.Notes, boundedConcern)

	return clamp(score, 5, 95)
}

// Classify tiers a score: high at 80 and above, medium at lowThreshold and
// above, low otherwise.
func Classify(score, lowThreshold int) model.Confidence {
	c := model.Confidence{Score: score}
	switch {
	case score >= HighThreshold:
		c.Tier, c.Color, c.Emoji = model.TierHigh, "green", "🟢"
	case score >= lowThreshold:
		c.Tier, c.Color, c.Emoji = model.TierMedium, "yellow", "🟡"
	default:
		c.Tier, c.Color, c.Emoji = model.TierLow, "red", "🔴"
	}
	c.Band = c.Color
	return c
}

// ShouldRedact reports whether a record with c must have its content
// suppressed.
func ShouldRedact(c model.Confidence) bool {
	return c.Tier == model.TierLow
}

// Redact empties the content fields of rec and marks it redacted. Language,
// provenance, notes, confidence, and the raw trace are kept.
func Redact(rec *model.ArticleRecord) {
	lang := rec.Language
	finalURL := rec.FinalURL
	rec.ArticleFields = model.ArticleFields{Language: lang, FinalURL: finalURL, Tags: []string{}}
	rec.Redacted = true
}

func present(v string, weight float64) float64 {
	if strings.TrimSpace(v) != "" {
		return weight
	}
	return 0
}

func distinctProviders(provenance map[string]string) int {
	seen := make(map[string]struct{}, len(provenance))
	for _, p := range provenance {
		seen[p] = struct{}{}
	}
	return len(seen)
}

func countOutcomes(outcomes []model.ProviderOutcome, statuses ...model.OutcomeStatus) int {
	n := 0
	for _, o := range outcomes {
		for _, s := range statuses {
			if o.Status == s {
				n++
				break
			}
		}
	}
	return n
}

func countNotes(notes []string, re *regexp.Regexp) int {
	n := 0
	for _, note := range notes {
		if re.MatchString(note) {
			n++
		}
	}
	return n
}

func ifElse(cond bool, yes, no int) int {
	if cond {
		return yes
	}
	return no
}

func clamp(v, lo, hi int) int {
	return max(lo, min(hi, v))
}
