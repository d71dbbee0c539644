package provider

import (
	"strings"

	"golang.org/x/text/language"
)

// isoLanguage converts a BCP 47 or ISO 639-1 tag ("en", "en-US") reported
// by a remote service into the ISO 639-3 code used for detected languages.
func isoLanguage(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return ""
	}
	t, err := language.Parse(tag)
	if err != nil {
		return ""
	}
	base, conf := t.Base()
	if conf == language.No {
		return ""
	}
	return base.ISO3()
}
