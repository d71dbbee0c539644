// Package readability pulls the main article body and page metadata out of
// raw HTML with goquery.
package readability

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/extract"
)

const (
	minParagraphLength   = 20
	minHeadingLength     = 3
	mainContentSelectors = "article, main, div[role='main'], #main, #content, .post-content, .article-body, .article-content, .entry-content, .story-body"
	noiseSelectors       = "script, style, noscript, iframe, form, nav, aside, header, footer, .related-posts, .social-share, .comments, .ad-banner, .advertisement, .newsletter"
	textSelectors        = "p, h2, h3, h4, h5, h6, li, blockquote, pre"
	bylineSelectors      = "[rel='author'], .byline, .author, .article-author, [itemprop='author']"
)

// Parser implements extract.ReadabilityParser.
type Parser struct{}

// NewParser creates a Parser.
func NewParser() *Parser { return &Parser{} }

// Parse locates the main content block and returns its text. An error means
// the markup could not be parsed or held no readable content.
func (p *Parser) Parse(html, _ string) (*extract.Article, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "readability: parse html")
	}

	title := articleTitle(doc)
	byline := normalize(doc.Find(bylineSelectors).First().Text())
	byline = strings.TrimSpace(strings.TrimPrefix(strings.TrimPrefix(byline, "By "), "by "))

	main := findMainContent(doc)
	main.Find(noiseSelectors).Remove()

	var parts []string
	main.Find(textSelectors).Each(func(_ int, s *goquery.Selection) {
		if s.ParentsFiltered("li, blockquote").Length() > 0 && !s.Is("li") {
			return
		}
		text := normalize(s.Text())
		switch {
		case text == "":
		case s.Is("h2, h3, h4, h5, h6"):
			if len(text) > minHeadingLength {
				parts = append(parts, text)
			}
		case s.Is("li") || len(text) > minParagraphLength:
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		if text := normalize(main.Text()); text != "" {
			parts = append(parts, text)
		}
	}
	if len(parts) == 0 && title == "" {
		return nil, eris.New("readability: no readable content")
	}

	content, _ := main.Html()
	return &extract.Article{
		Title:       title,
		Byline:      byline,
		Content:     strings.TrimSpace(content),
		TextContent: strings.Join(parts, "\n\n"),
	}, nil
}

func articleTitle(doc *goquery.Document) string {
	if h1 := normalize(doc.Find("article h1, main h1").First().Text()); h1 != "" {
		return h1
	}
	if h1 := normalize(doc.Find("h1").First().Text()); h1 != "" {
		return h1
	}
	return normalize(doc.Find("title").First().Text())
}

func findMainContent(doc *goquery.Document) *goquery.Selection {
	main := doc.Find(mainContentSelectors).First()
	if main.Length() == 0 {
		main = doc.Find("body").First()
	}
	if main.Length() == 0 {
		main = doc.Selection
	}
	return main.Clone()
}

// normalize collapses runs of whitespace.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
