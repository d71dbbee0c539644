package pipeline

import (
	"strings"

	"github.com/sells-group/article-digest/internal/extract"
)

// requiredFields are the fields a complete record carries. Word count is
// derived from body and is not listed.
var requiredFields = []string{
	extract.FieldTitle,
	extract.FieldDescription,
	extract.FieldAuthor,
	extract.FieldPublishedOn,
	extract.FieldPublicationDate,
	extract.FieldBody,
}

const allFieldsCaptured = "All key fields captured."

// missingFields lists the required fields snap has no value for, in
// requiredFields order.
func missingFields(snap extract.Snapshot) []string {
	values := map[string]string{
		extract.FieldTitle:           snap.Fields.Title,
		extract.FieldDescription:     snap.Fields.Description,
		extract.FieldAuthor:          snap.Fields.Author,
		extract.FieldPublishedOn:     snap.Fields.PublishedOn,
		extract.FieldPublicationDate: snap.Fields.PublicationDate,
		extract.FieldBody:            snap.Fields.Body,
	}
	var missing []string
	for _, f := range requiredFields {
		if strings.TrimSpace(values[f]) == "" {
			missing = append(missing, f)
		}
	}
	return missing
}

// buildReason joins the missing-field summary with the extraction notes.
func buildReason(snap extract.Snapshot) string {
	parts := make([]string, 0, len(snap.Notes)+1)
	if missing := missingFields(snap); len(missing) > 0 {
		parts = append(parts, "Missing fields: "+strings.Join(missing, ", "))
	} else {
		parts = append(parts, allFieldsCaptured)
	}
	parts = append(parts, snap.Notes...)
	return strings.Join(parts, " | ")
}

// primaryProvider names the provider a record's content is attributed to:
// whoever supplied the body, then the binary, text, and html payloads, then
// the first provider that wrote anything.
func primaryProvider(snap extract.Snapshot) string {
	candidates := []string{
		snap.Provenance[extract.FieldBody],
		snap.BinaryProvider,
		snap.TextProvider,
		snap.HTMLProvider,
	}
	if len(snap.ProvidersUsed) > 0 {
		candidates = append(candidates, snap.ProvidersUsed[0])
	}
	for _, c := range candidates {
		if c != "" {
			return c
		}
	}
	return "unknown"
}

// unionProviders merges the providers used by every record, keeping first
// appearance order.
func unionProviders(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, p := range list {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			out = append(out, p)
		}
	}
	return out
}
