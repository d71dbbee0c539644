// Package extract runs an ordered chain of content-extraction providers
// against a URL, accumulating their partial results in a shared Context.
package extract

import (
	"strings"

	"github.com/sells-group/article-digest/internal/model"
)

// Field names understood by the Context.
const (
	FieldTitle           = "title"
	FieldDescription     = "description"
	FieldAuthor          = "author"
	FieldPublishedOn     = "published_on"
	FieldPublicationDate = "publication_date"
	FieldBody            = "body"
	FieldWordCount       = "word_count"
	FieldTags            = "tags"
	FieldLanguage        = "language"
	FieldPublisher       = "publisher"
	FieldFinalURL        = "final_url"
)

// Context accumulates payloads, fields, and diagnostics for a single URL.
// Payloads and fields are write-once: the first non-empty write wins and
// later writes are ignored. A Context is not safe for concurrent use; the
// orchestrator runs providers one at a time.
type Context struct {
	URL string

	// Options visible to providers.
	DisableBrowser   bool
	ExpectedLanguage string

	html, text       string
	binary           []byte
	htmlProvider     string
	textProvider     string
	binaryProvider   string
	fields           map[string]any
	provenance       map[string]string
	providersUsed    []string
	providersUsedSet map[string]struct{}
	notes            []string
	outcomes         []model.ProviderOutcome
}

// NewContext creates an empty Context for url.
func NewContext(url string) *Context {
	return &Context{
		URL:              url,
		fields:           make(map[string]any),
		provenance:       make(map[string]string),
		providersUsedSet: make(map[string]struct{}),
	}
}

func (c *Context) markUsed(provider string) {
	if provider == "" {
		return
	}
	if _, ok := c.providersUsedSet[provider]; ok {
		return
	}
	c.providersUsedSet[provider] = struct{}{}
	c.providersUsed = append(c.providersUsed, provider)
}

// SetHTML stores the page markup unless already set.
func (c *Context) SetHTML(html, provider string) bool {
	if strings.TrimSpace(html) == "" || c.html != "" {
		return false
	}
	c.html = html
	c.htmlProvider = provider
	c.markUsed(provider)
	return true
}

// SetText stores the page text unless already set.
func (c *Context) SetText(text, provider string) bool {
	if strings.TrimSpace(text) == "" || c.text != "" {
		return false
	}
	c.text = text
	c.textProvider = provider
	c.markUsed(provider)
	return true
}

// SetBinary stores a binary document payload unless already set.
func (c *Context) SetBinary(data []byte, provider string) bool {
	if len(data) == 0 || c.binary != nil {
		return false
	}
	c.binary = data
	c.binaryProvider = provider
	c.markUsed(provider)
	return true
}

// HTML returns the stored markup.
func (c *Context) HTML() string { return c.html }

// Text returns the stored page text.
func (c *Context) Text() string { return c.text }

// Binary returns the stored binary payload.
func (c *Context) Binary() []byte { return c.binary }

// SetField stores value under name and attributes it to provider. Blank
// strings, nil, empty slices, and non-positive counts are rejected, as is any
// write to a field that already holds a value. It reports whether the value
// was stored.
func (c *Context) SetField(name string, value any, provider string) bool {
	if _, exists := c.fields[name]; exists {
		return false
	}
	v, ok := acceptValue(value)
	if !ok {
		return false
	}
	c.fields[name] = v
	if provider != "" {
		c.provenance[name] = provider
		c.markUsed(provider)
	}
	return true
}

func acceptValue(value any) (any, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case *string:
		if v == nil {
			return nil, false
		}
		return acceptValue(*v)
	case int:
		return v, v > 0
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
		return out, len(out) > 0
	default:
		return v, true
	}
}

// Field returns the raw value stored under name, or nil.
func (c *Context) Field(name string) any {
	return c.fields[name]
}

// Has reports whether name holds a value.
func (c *Context) Has(name string) bool {
	_, ok := c.fields[name]
	return ok
}

// String returns a string field, or "".
func (c *Context) String(name string) string {
	s, _ := c.fields[name].(string)
	return s
}

// Int returns an integer field, or 0.
func (c *Context) Int(name string) int {
	n, _ := c.fields[name].(int)
	return n
}

// Strings returns a string-slice field, or nil.
func (c *Context) Strings(name string) []string {
	s, _ := c.fields[name].([]string)
	return s
}

// AddNote appends a diagnostic note.
func (c *Context) AddNote(note string) {
	if note == "" {
		return
	}
	c.notes = append(c.notes, note)
}

// RecordOutcome appends the outcome of a provider attempt.
func (c *Context) RecordOutcome(provider string, outcome model.ProviderOutcome) {
	outcome.Name = provider
	c.outcomes = append(c.outcomes, outcome)
}

// Snapshot is a copy of everything a Context accumulated.
type Snapshot struct {
	Fields         model.ArticleFields
	Provenance     map[string]string
	ProvidersUsed  []string
	Notes          []string
	Outcomes       []model.ProviderOutcome
	HTMLProvider   string
	TextProvider   string
	BinaryProvider string
}

// Snapshot returns the accumulated fields and diagnostics.
func (c *Context) Snapshot() Snapshot {
	prov := make(map[string]string, len(c.provenance))
	for k, v := range c.provenance {
		prov[k] = v
	}
	return Snapshot{
		Fields: model.ArticleFields{
			Title:           c.String(FieldTitle),
			Description:     c.String(FieldDescription),
			Author:          c.String(FieldAuthor),
			PublishedOn:     c.String(FieldPublishedOn),
			PublicationDate: c.String(FieldPublicationDate),
			Body:            c.String(FieldBody),
			WordCount:       c.Int(FieldWordCount),
			Publisher:       c.String(FieldPublisher),
			Language:        c.String(FieldLanguage),
			Tags:            append([]string(nil), c.Strings(FieldTags)...),
			FinalURL:        c.String(FieldFinalURL),
		},
		Provenance:     prov,
		ProvidersUsed:  append([]string(nil), c.providersUsed...),
		Notes:          append([]string(nil), c.notes...),
		Outcomes:       append([]model.ProviderOutcome(nil), c.outcomes...),
		HTMLProvider:   c.htmlProvider,
		TextProvider:   c.textProvider,
		BinaryProvider: c.binaryProvider,
	}
}
