package readability

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/extract"
)

// MetadataScraper implements extract.MetadataScraper using OpenGraph,
// Twitter card, and standard meta tags.
type MetadataScraper struct{}

// NewMetadataScraper creates a MetadataScraper.
func NewMetadataScraper() *MetadataScraper { return &MetadataScraper{} }

// Scrape reads page-level metadata from html.
func (m *MetadataScraper) Scrape(html, pageURL string) (*extract.Metadata, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, eris.Wrap(err, "metadata: parse html")
	}

	metas := map[string]string{}
	doc.Find("meta").Each(func(_ int, s *goquery.Selection) {
		content := strings.TrimSpace(s.AttrOr("content", ""))
		if content == "" {
			return
		}
		for _, attr := range []string{"property", "name", "itemprop"} {
			key := strings.ToLower(strings.TrimSpace(s.AttrOr(attr, "")))
			if key != "" {
				if _, seen := metas[key]; !seen {
					metas[key] = content
				}
			}
		}
	})
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v := metas[k]; v != "" {
				return v
			}
		}
		return ""
	}

	md := &extract.Metadata{
		Title:       pick("og:title", "twitter:title", "headline"),
		Description: pick("og:description", "twitter:description", "description"),
		Author:      pick("author", "article:author", "parsely-author", "sailthru.author"),
		Date:        pick("article:published_time", "datepublished", "parsely-pub-date", "date", "dc.date", "pubdate"),
		Publisher:   pick("og:site_name", "application-name", "publisher"),
		URL:         pick("og:url"),
	}
	if md.Title == "" {
		md.Title = normalize(doc.Find("title").First().Text())
	}
	if md.Date == "" {
		md.Date = strings.TrimSpace(doc.Find("time[datetime]").First().AttrOr("datetime", ""))
	}
	if md.URL == "" {
		md.URL = strings.TrimSpace(doc.Find("link[rel='canonical']").First().AttrOr("href", ""))
	}
	md.URL = resolve(pageURL, md.URL)

	var keywords []string
	keywords = append(keywords, extract.SplitKeywords(pick("keywords", "news_keywords"))...)
	doc.Find("meta[property='article:tag']").Each(func(_ int, s *goquery.Selection) {
		keywords = append(keywords, s.AttrOr("content", ""))
	})
	md.Keywords = extract.MergeTags(keywords)
	return md, nil
}

func resolve(base, ref string) string {
	if ref == "" {
		return ""
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	b, err := url.Parse(base)
	if err != nil {
		return r.String()
	}
	return b.ResolveReference(r).String()
}
