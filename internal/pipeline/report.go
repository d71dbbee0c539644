package pipeline

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/sells-group/article-digest/internal/model"
)

const (
	bodyPreviewChars = 600
	redactedNotice   = "_Record redacted due to low confidence; metadata withheld._"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// FormatReport renders a run as the markdown digest review.
func FormatReport(result model.RunResult) string {
	sections := []string{
		"# Digest Review",
		formatSummary(result),
		"## Articles",
	}
	for i, rec := range result.Records {
		sections = append(sections, formatRecord(rec, i))
	}
	return strings.Join(sections, "\n\n")
}

func formatSummary(result model.RunResult) string {
	lines := []string{"## Run Summary"}
	lines = append(lines, fmt.Sprintf("- **Processed Links:** %d", len(result.Records)))
	md := result.Metadata
	if !md.StartedAt.IsZero() {
		lines = append(lines, fmt.Sprintf("- **Started At:** %s", md.StartedAt.UTC().Format(time.RFC3339)))
	}
	if md.DurationMs > 0 {
		lines = append(lines, fmt.Sprintf("- **Duration:** %d ms", md.DurationMs))
	}
	if len(md.ProvidersUsed) > 0 {
		lines = append(lines, "- **Providers Used:** "+strings.Join(md.ProvidersUsed, ", "))
	}
	return strings.Join(lines, "\n")
}

func formatRecord(rec model.ArticleRecord, index int) string {
	var lines []string

	heading := rec.Title
	if heading == "" {
		heading = fmt.Sprintf("Article %d", index+1)
	}
	lines = append(lines, fmt.Sprintf("### %d. %s", index+1, heading))

	meta := []string{
		"**Link:** " + rec.URL,
		fmt.Sprintf("**Confidence:** %s %d%% (%s)", rec.Confidence.Emoji, rec.Confidence.Score, rec.Confidence.Band),
	}
	if rec.Provider != "" {
		meta = append(meta, "**Primary Provider:** "+rec.Provider)
	}
	if used := compact(rec.ProvidersUsed); len(used) > 0 {
		meta = append(meta, "**Providers Used:** "+strings.Join(used, ", "))
	}
	lines = append(lines, strings.Join(meta, "  \n"))

	if notes := recordNotes(rec); len(notes) > 0 {
		lines = append(lines, "**Notes**")
		for _, n := range notes {
			lines = append(lines, "- "+n)
		}
	}

	if rec.Redacted {
		lines = append(lines, redactedNotice)
		return strings.Join(lines, "\n")
	}

	var md []string
	if rec.Description != "" {
		md = append(md, "- **Summary:** "+rec.Description)
	}
	if rec.Author != "" {
		md = append(md, "- **Author:** "+rec.Author)
	}
	if rec.PublishedOn != "" {
		md = append(md, "- **Publication:** "+rec.PublishedOn)
	}
	if rec.PublicationDate != "" {
		md = append(md, "- **Published:** "+rec.PublicationDate)
	}
	if rec.WordCount > 0 {
		md = append(md, fmt.Sprintf("- **Word Count:** %d", rec.WordCount))
	}
	if rec.Language != "" {
		md = append(md, "- **Language:** "+rec.Language)
	}
	if tags := compact(rec.Tags); len(tags) > 0 {
		md = append(md, "- **Tags:** "+strings.Join(tags, ", "))
	}
	if prov := formatProvenance(rec.Provenance); len(prov) > 0 {
		md = append(md, "- **Provenance:** "+strings.Join(prov, ", "))
	}
	if len(md) > 0 {
		lines = append(lines, "**Metadata**")
		lines = append(lines, md...)
	}

	if preview := bodyPreview(rec.Body); preview != "" {
		lines = append(lines, "**Body Preview**", "> "+preview)
	}
	return strings.Join(lines, "\n")
}

// recordNotes splits the reason on "|" and appends the notes, dropping
// blanks and duplicates.
func recordNotes(rec model.ArticleRecord) []string {
	var all []string
	if rec.Reason != "" {
		all = append(all, strings.Split(rec.Reason, "|")...)
	}
	all = append(all, rec.Notes...)

	seen := make(map[string]struct{}, len(all))
	var out []string
	for _, n := range compact(all) {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

func formatProvenance(prov map[string]string) []string {
	fields := make([]string, 0, len(prov))
	for f := range prov {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, f+": "+prov[f])
	}
	return out
}

// bodyPreview collapses whitespace and cuts body to bodyPreviewChars at the
// last word boundary.
func bodyPreview(body string) string {
	norm := strings.TrimSpace(whitespaceRun.ReplaceAllString(body, " "))
	if norm == "" {
		return ""
	}
	runes := []rune(norm)
	if len(runes) <= bodyPreviewChars {
		return norm
	}
	cut := string(runes[:bodyPreviewChars])
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return cut + "..."
}

func compact(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
