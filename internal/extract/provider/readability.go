package provider

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/extract"
	"github.com/sells-group/article-digest/internal/model"
)

const (
	shortBodyWords = 200
	maxBodyTags    = 10
)

// Readability isolates the main article from the captured markup and fills
// metadata from page meta tags.
type Readability struct {
	parser  extract.ReadabilityParser
	scraper extract.MetadataScraper
}

// NewReadability creates the readability provider. A nil scraper skips
// page metadata.
func NewReadability(parser extract.ReadabilityParser, scraper extract.MetadataScraper) *Readability {
	return &Readability{parser: parser, scraper: scraper}
}

func (p *Readability) Name() string { return extract.ProviderReadability }

func (p *Readability) Supports(_ string) bool { return p.parser != nil }

func (p *Readability) Execute(_ context.Context, ec *extract.Context) error {
	html := ec.HTML()
	if html == "" {
		ec.RecordOutcome(p.Name(), model.ProviderOutcome{Status: model.OutcomeSkipped, Reason: "html-missing"})
		return nil
	}

	article, err := p.parser.Parse(html, ec.URL)
	if err != nil {
		zap.L().Warn("readability: parse failed", zap.String("url", ec.URL), zap.Error(err))
		ec.AddNote(fmt.Sprintf("Readability failed: %s", err.Error()))
		ec.RecordOutcome(p.Name(), model.ProviderOutcome{Status: model.OutcomeError, Error: err.Error()})
		return nil
	}

	name := p.Name()
	var bodyTags []string
	if body := strings.TrimSpace(article.TextContent); body != "" {
		ec.SetField(extract.FieldBody, body, name)
		ec.SetField(extract.FieldWordCount, extract.WordCount(body), name)
		ec.SetField(extract.FieldLanguage, extract.DetectLanguage(body), name)
		bodyTags = extract.Keywords(body, maxBodyTags)
	}
	ec.SetField(extract.FieldTitle, article.Title, name)
	ec.SetField(extract.FieldAuthor, article.Byline, name)

	var pageTags []string
	if p.scraper != nil {
		meta, err := p.scraper.Scrape(html, ec.URL)
		if err != nil {
			ec.AddNote(fmt.Sprintf("Metascraper failed: %s", err.Error()))
		} else {
			pageTags = meta.Keywords
			p.applyMetadata(ec, meta)
		}
	}

	tagProvider := name
	if len(pageTags) > 0 {
		tagProvider = extract.ProviderMetascraper
	}
	ec.SetField(extract.FieldTags, extract.MergeTags(pageTags, bodyTags), tagProvider)

	if ec.Int(extract.FieldWordCount) < shortBodyWords {
		ec.AddNote("Article body short or missing (Readability)")
	}
	ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeOK})
	return nil
}

func (p *Readability) applyMetadata(ec *extract.Context, meta *extract.Metadata) {
	const src = extract.ProviderMetascraper
	ec.SetField(extract.FieldTitle, meta.Title, src)
	ec.SetField(extract.FieldDescription, meta.Description, src)
	ec.SetField(extract.FieldAuthor, meta.Author, src)
	ec.SetField(extract.FieldPublicationDate, meta.Date, src)
	ec.SetField(extract.FieldPublishedOn, meta.Publisher, src)
	ec.SetField(extract.FieldPublisher, meta.Publisher, src)
	ec.SetField(extract.FieldFinalURL, meta.URL, src)
}
