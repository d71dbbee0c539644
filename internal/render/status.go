package render

import (
	"errors"

	"github.com/sells-group/article-digest/pkg/firecrawl"
	"github.com/sells-group/article-digest/pkg/jina"
)

// statusOf pulls an HTTP status out of a backend API error, or 0.
func statusOf(err error) int {
	var jerr *jina.APIError
	if errors.As(err, &jerr) {
		return jerr.StatusCode
	}
	var ferr *firecrawl.APIError
	if errors.As(err, &ferr) {
		return ferr.StatusCode
	}
	return 0
}
