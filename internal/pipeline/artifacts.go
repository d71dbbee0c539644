package pipeline

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/yuin/goldmark"
	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/model"
)

// Artifact file names written under the output directory.
const (
	MarkdownFile = "article_scraping_results.md"
	HTMLFile     = "article_scraping_results.html"
	LinksFile    = "links.md"
	JSONFile     = "digest.json"
)

// WriteArtifacts writes the run result, link list, and markdown review
// (plus its HTML rendering) into dir, creating it if needed.
func WriteArtifacts(dir string, urls []string, result model.RunResult) error {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrapf(err, "pipeline: create output dir %s", dir)
	}

	report := FormatReport(result)
	var html bytes.Buffer
	if err := goldmark.Convert([]byte(report), &html); err != nil {
		return eris.Wrap(err, "pipeline: render report html")
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return eris.Wrap(err, "pipeline: marshal run result")
	}

	files := []struct {
		name    string
		content []byte
	}{
		{MarkdownFile, []byte(report)},
		{HTMLFile, html.Bytes()},
		{LinksFile, []byte(strings.Join(urls, "\n"))},
		{JSONFile, data},
	}
	for _, f := range files {
		path := filepath.Join(dir, f.name)
		if err := os.WriteFile(path, f.content, 0o644); err != nil {
			return eris.Wrapf(err, "pipeline: write %s", f.name)
		}
		zap.L().Info("pipeline: wrote artifact", zap.String("path", path))
	}
	return nil
}
