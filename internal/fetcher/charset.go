package fetcher

import (
	"mime"
	"regexp"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"
)

var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]+charset\s*=\s*["']?([a-zA-Z0-9_\-:.]+)`)

// charsetOf returns the declared charset from the Content-Type header or,
// failing that, a <meta charset> tag in the first 1KB of the body.
func charsetOf(contentType string, body []byte) string {
	if _, params, err := mime.ParseMediaType(contentType); err == nil {
		if cs := params["charset"]; cs != "" {
			return strings.ToLower(cs)
		}
	}
	head := body
	if len(head) > 1024 {
		head = head[:1024]
	}
	if m := metaCharsetRe.FindSubmatch(head); m != nil {
		return strings.ToLower(string(m[1]))
	}
	return ""
}

// DecodeHTML converts body to a UTF-8 string using the declared charset.
// Unknown charsets fall back to the raw bytes.
func DecodeHTML(contentType string, body []byte) string {
	cs := charsetOf(contentType, body)
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return string(body)
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		return string(body)
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil || !utf8.Valid(decoded) {
		return string(body)
	}
	return string(decoded)
}
