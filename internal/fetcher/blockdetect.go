package fetcher

import (
	"fmt"
	"net/http"
	"strings"
)

// BlockType is the kind of bot wall that stood between the fetch and the article.
type BlockType string

const (
	BlockCloudflare BlockType = "cloudflare"
	BlockCaptcha    BlockType = "captcha"
	BlockBotWall    BlockType = "bot_wall"
	BlockJSShell    BlockType = "js_shell"
)

// Block describes why a fetched page is not the article itself.
type Block struct {
	Type BlockType
	// Signal is the header or marker that matched.
	Signal string
}

// Note is the provider note recorded for a blocked fetch.
func (b *Block) Note() string {
	return fmt.Sprintf("HTTP fetch blocked (%s)", b.Type)
}

// Reason is the outcome reason recorded for a blocked fetch, carrying the
// matched signal.
func (b *Block) Reason() string {
	return fmt.Sprintf("blocked:%s (%s)", b.Type, b.Signal)
}

type blockMarker struct {
	kind    BlockType
	markers []string
}

// Body markers, checked in order against the lowercased page.
var bodyMarkers = []blockMarker{
	{BlockCloudflare, []string{"checking your browser", "cf-browser-verification", "cf-challenge", "/cdn-cgi/challenge-platform/"}},
	{BlockCaptcha, []string{"g-recaptcha", "h-captcha", "complete the captcha", "complete the recaptcha", "captcha-delivery.com"}},
	{BlockBotWall, []string{"press & hold", "are you a robot", "unusual traffic from your computer", "pardon our interruption"}},
}

// jsShellLimit bounds the page size treated as an empty JavaScript shell.
const jsShellLimit = 2000

// InspectBlock reports the bot wall a response hit, or nil for a usable page.
func InspectBlock(status int, header http.Header, html string) *Block {
	if status == http.StatusForbidden || status == http.StatusServiceUnavailable {
		for _, h := range []string{"Cf-Ray", "Cf-Mitigated"} {
			if header.Get(h) != "" {
				return &Block{Type: BlockCloudflare, Signal: strings.ToLower(h) + " header"}
			}
		}
		if strings.EqualFold(header.Get("Server"), "cloudflare") {
			return &Block{Type: BlockCloudflare, Signal: "server header"}
		}
	}

	lower := strings.ToLower(html)
	for _, bm := range bodyMarkers {
		for _, m := range bm.markers {
			if strings.Contains(lower, m) {
				return &Block{Type: bm.kind, Signal: m}
			}
		}
	}

	if len(lower) < jsShellLimit && strings.Contains(lower, "<noscript") && strings.Contains(lower, "javascript") {
		return &Block{Type: BlockJSShell, Signal: "noscript"}
	}
	return nil
}
