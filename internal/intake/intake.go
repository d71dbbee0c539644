// Package intake turns user input (argument lists, URL files, free text and
// RSS/Atom feeds) into the URL list a run consumes.
package intake

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"strings"

	"github.com/mmcdole/gofeed"
	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/fetcher"
)

// ParseList splits free text into URL candidates on newlines and other
// whitespace. Blank lines and lines starting with '#' are ignored.
func ParseList(text string) []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(text))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, strings.Fields(line)...)
	}
	return out
}

// ReadFile reads a URL list file, one URL per line.
func ReadFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: read %s", path)
	}
	return ParseList(string(data)), nil
}

// FeedReader resolves RSS/Atom feeds into item links.
type FeedReader struct {
	fetcher fetcher.PageFetcher
}

// NewFeedReader creates a FeedReader that downloads feeds with f.
func NewFeedReader(f fetcher.PageFetcher) *FeedReader {
	return &FeedReader{fetcher: f}
}

// Links returns up to limit item links from the feed at feedURL, in feed
// order. A non-positive limit returns every link.
func (r *FeedReader) Links(ctx context.Context, feedURL string, limit int) ([]string, error) {
	page, err := r.fetcher.Fetch(ctx, feedURL)
	if err != nil {
		return nil, eris.Wrapf(err, "intake: fetch feed %s", feedURL)
	}
	if page.StatusCode < 200 || page.StatusCode >= 300 {
		return nil, eris.Errorf("intake: fetch feed %s: status %d", feedURL, page.StatusCode)
	}

	feed, err := gofeed.NewParser().Parse(bytes.NewReader(page.Body))
	if err != nil {
		return nil, eris.Wrapf(err, "intake: parse feed %s", feedURL)
	}
	return FeedLinks(feed, limit), nil
}

// FeedLinks extracts item links from a parsed feed, skipping blanks and
// duplicates.
func FeedLinks(feed *gofeed.Feed, limit int) []string {
	seen := make(map[string]struct{}, len(feed.Items))
	var out []string
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		link := strings.TrimSpace(item.Link)
		if link == "" && len(item.Links) > 0 {
			link = strings.TrimSpace(item.Links[0])
		}
		if link == "" {
			continue
		}
		if _, ok := seen[link]; ok {
			continue
		}
		seen[link] = struct{}{}
		out = append(out, link)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}
