package pipeline

import (
	"strings"

	"go.uber.org/zap"
)

// SanitizeURLs trims urls, keeps those that look like http(s) links, drops
// duplicates while preserving order, and truncates the list to max. A max of
// zero or less keeps every URL.
func SanitizeURLs(urls []string, max int) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		u := strings.TrimSpace(raw)
		if !strings.HasPrefix(strings.ToLower(u), "http") {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}

	if max > 0 && len(out) > max {
		zap.L().Warn("pipeline: truncating link list",
			zap.Int("received", len(out)),
			zap.Int("max", max),
		)
		out = out[:max]
	}
	return out
}
