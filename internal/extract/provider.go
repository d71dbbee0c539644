package extract

import (
	"context"
	"net/url"
	"strings"
)

// Provider names. They appear in provenance, outcomes, and notes.
const (
	ProviderRender      = "render"
	ProviderHTTP        = "basic-http"
	ProviderReadability = "readability"
	ProviderPDF         = "pdf"
	ProviderTrafilatura = "trafilatura"
	ProviderDiffbot     = "diffbot"
	ProviderMetascraper = "metascraper"
	ProviderLegacy      = "legacy-parser"
)

// providerAliases maps names from older provider files onto current ones.
var providerAliases = map[string]string{
	"playwright": ProviderRender,
	"browser":    ProviderRender,
	"http":       ProviderHTTP,
}

// CanonicalName resolves a configured provider name, case-insensitively,
// through its aliases.
func CanonicalName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := providerAliases[n]; ok {
		return alias
	}
	return n
}

// Provider is one content-extraction strategy. Execute reads and writes the
// shared Context; a returned error is recorded as a provider exception and
// never stops the chain.
type Provider interface {
	Name() string
	Supports(url string) bool
	Execute(ctx context.Context, ec *Context) error
}

// DefaultOrder is the provider order used when none is configured.
func DefaultOrder() []string {
	return []string{ProviderRender, ProviderHTTP, ProviderReadability, ProviderTrafilatura, ProviderDiffbot}
}

// IsBinaryDocument reports whether rawURL points at a PDF.
func IsBinaryDocument(rawURL string) bool {
	lower := strings.ToLower(strings.TrimSpace(rawURL))
	if strings.HasSuffix(lower, ".pdf") {
		return true
	}
	u, err := url.Parse(lower)
	if err != nil {
		return false
	}
	return strings.HasSuffix(u.Path, ".pdf")
}
