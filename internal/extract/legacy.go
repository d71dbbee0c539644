package extract

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const legacyNote = "Legacy HTML parser applied for missing metadata"

// LegacyResult is what the pattern-based parser finds in a page.
type LegacyResult struct {
	Title           string
	Description     string
	Author          string
	PublishedOn     string
	PublicationDate string
	Tags            []string
	WordCount       int
}

// ParseLegacy scans raw markup for title, meta tags, and a body word count.
func ParseLegacy(html, pageURL string) LegacyResult {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return LegacyResult{}
	}

	metas := collectMeta(doc)
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v := metas[k]; v != "" {
				return v
			}
		}
		return ""
	}

	res := LegacyResult{
		Title:           strings.Join(strings.Fields(doc.Find("title").First().Text()), " "),
		Description:     pick("description", "og:description", "twitter:description"),
		Author:          pick("author", "article:author", "twitter:creator"),
		PublishedOn:     pick("og:site_name", "application-name"),
		PublicationDate: pick("article:published_time", "og:published_time", "date", "pubdate", "lastmod"),
	}
	if res.PublishedOn == "" {
		if u, err := url.Parse(pageURL); err == nil {
			res.PublishedOn = strings.TrimPrefix(u.Hostname(), "www.")
		}
	}
	if kw := pick("keywords", "news_keywords"); kw != "" {
		res.Tags = MergeTags(SplitKeywords(kw))
	}
	body := doc.Find("body").First()
	body.Find("script, style, noscript").Remove()
	res.WordCount = WordCount(body.Text())
	return res
}

// collectMeta maps lowercased meta name/property to the first non-empty
// content seen for it.
func collectMeta(doc *goquery.Document) map[string]string {
	metas := make(map[string]string)
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		for _, attr := range []string{"name", "property"} {
			key := strings.ToLower(strings.TrimSpace(s.AttrOr(attr, "")))
			if key == "" {
				continue
			}
			if _, ok := metas[key]; !ok {
				metas[key] = content
			}
		}
	})
	return metas
}

// ApplyLegacyFallback fills still-missing fields from the legacy parser when
// the chain produced markup but neither a title nor a description. It reports
// whether the fallback ran.
func ApplyLegacyFallback(ec *Context) bool {
	if ec.HTML() == "" {
		return false
	}
	if ec.Has(FieldTitle) || ec.Has(FieldDescription) {
		return false
	}

	res := ParseLegacy(ec.HTML(), ec.URL)
	ec.SetField(FieldTitle, res.Title, ProviderLegacy)
	ec.SetField(FieldDescription, res.Description, ProviderLegacy)
	ec.SetField(FieldAuthor, res.Author, ProviderLegacy)
	ec.SetField(FieldPublishedOn, res.PublishedOn, ProviderLegacy)
	ec.SetField(FieldPublicationDate, res.PublicationDate, ProviderLegacy)
	ec.SetField(FieldTags, res.Tags, ProviderLegacy)
	ec.SetField(FieldWordCount, res.WordCount, ProviderLegacy)
	ec.AddNote(legacyNote)
	return true
}
