package extract

import "context"

// RenderStatus is the outcome reported by a Renderer.
type RenderStatus string

const (
	RenderOK      RenderStatus = "ok"
	RenderError   RenderStatus = "error"
	RenderTimeout RenderStatus = "timeout"
)

// RenderResult is a rendered page.
type RenderResult struct {
	Status     RenderStatus
	HTML       string
	Text       string
	FinalURL   string
	StatusCode int
	Error      string
}

// Renderer loads a page in a browser-grade environment. One Renderer is shared
// across a batch and closed when the batch ends.
type Renderer interface {
	Render(ctx context.Context, url string) (RenderResult, error)
	Close() error
}

// DocumentInfo is embedded document metadata.
type DocumentInfo struct {
	Title        string
	Author       string
	Subject      string
	CreationDate string
}

// Document is the text content of a binary document.
type Document struct {
	Text     string
	NumPages int
	Info     DocumentInfo
}

// TextExtractor pulls text and metadata out of a binary document payload.
type TextExtractor interface {
	Extract(ctx context.Context, payload []byte) (*Document, error)
}

// Article is the main content found in an HTML page.
type Article struct {
	Title       string
	Byline      string
	Content     string
	TextContent string
}

// ReadabilityParser isolates the main article of an HTML page.
type ReadabilityParser interface {
	Parse(html, baseURL string) (*Article, error)
}

// Metadata is page-level metadata scraped from markup.
type Metadata struct {
	Title       string
	Description string
	Author      string
	Date        string
	Publisher   string
	URL         string
	Keywords    []string
}

// MetadataScraper reads structured metadata from an HTML page.
type MetadataScraper interface {
	Scrape(html, pageURL string) (*Metadata, error)
}
