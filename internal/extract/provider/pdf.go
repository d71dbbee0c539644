package provider

import (
	"context"
	"fmt"
	"strings"

	"github.com/sells-group/article-digest/internal/extract"
	"github.com/sells-group/article-digest/internal/fetcher"
	"github.com/sells-group/article-digest/internal/model"
)

// PDF downloads a binary document and extracts its text.
type PDF struct {
	fetcher   fetcher.PageFetcher
	extractor extract.TextExtractor
}

// NewPDF creates the pdf provider.
func NewPDF(f fetcher.PageFetcher, x extract.TextExtractor) *PDF {
	return &PDF{fetcher: f, extractor: x}
}

func (p *PDF) Name() string { return extract.ProviderPDF }

func (p *PDF) Supports(url string) bool {
	return p.fetcher != nil && p.extractor != nil && extract.IsBinaryDocument(url)
}

func (p *PDF) Execute(ctx context.Context, ec *extract.Context) error {
	name := p.Name()

	page, err := p.fetcher.Fetch(ctx, ec.URL)
	var reason string
	switch {
	case err != nil:
		reason = err.Error()
	case page.StatusCode < 200 || page.StatusCode >= 300:
		reason = fmt.Sprintf("status %d", page.StatusCode)
	case len(page.Body) == 0:
		reason = "empty body"
	}
	if reason != "" {
		ec.AddNote(fmt.Sprintf("PDF fetch failed: %s", reason))
		out := model.ProviderOutcome{Status: model.OutcomeError, Reason: reason}
		if page != nil {
			out.StatusCode = page.StatusCode
		}
		ec.RecordOutcome(name, out)
		return nil
	}

	ec.SetBinary(page.Body, name)

	doc, err := p.extractor.Extract(ctx, page.Body)
	if err != nil {
		ec.AddNote(fmt.Sprintf("PDF parsing failed: %s", err.Error()))
		ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeError, Error: err.Error()})
		return nil
	}

	body := strings.TrimSpace(doc.Text)
	ec.SetText(body, name)
	ec.SetField(extract.FieldBody, body, name)
	ec.SetField(extract.FieldWordCount, extract.WordCount(body), name)
	ec.SetField(extract.FieldTitle, documentTitle(doc), name)
	ec.SetField(extract.FieldAuthor, doc.Info.Author, name)
	ec.SetField(extract.FieldPublicationDate, doc.Info.CreationDate, name)
	ec.SetField(extract.FieldDescription, doc.Info.Subject, name)
	ec.SetField(extract.FieldLanguage, extract.DetectLanguage(body), name)

	ec.AddNote("PDF content extracted")
	ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeOK, StatusCode: page.StatusCode})
	return nil
}

func documentTitle(doc *extract.Document) string {
	if t := strings.TrimSpace(doc.Info.Title); t != "" {
		return t
	}
	for _, line := range strings.Split(doc.Text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
