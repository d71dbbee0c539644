package ocr

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/extract"
)

// PdfToText extracts text with the pdftotext CLI and metadata with pdfinfo.
type PdfToText struct {
	binPath  string
	infoPath string
}

// NewPdfToText creates a PdfToText extractor. Empty paths fall back to the
// binaries on PATH.
func NewPdfToText(binPath, infoPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	if infoPath == "" {
		infoPath = "pdfinfo"
	}
	return &PdfToText{binPath: binPath, infoPath: infoPath}
}

// Extract writes payload to a temp file and runs pdftotext -layout on it.
// A pdfinfo failure only drops the metadata.
func (p *PdfToText) Extract(ctx context.Context, payload []byte) (*extract.Document, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(payload, "\r\n\t "), []byte("%PDF")) {
		return nil, eris.New("ocr: payload is not a PDF")
	}

	f, err := os.CreateTemp("", "digest-*.pdf")
	if err != nil {
		return nil, eris.Wrap(err, "ocr: create temp file")
	}
	path := f.Name()
	defer func() { _ = os.Remove(path) }()

	if _, err := f.Write(payload); err != nil {
		_ = f.Close()
		return nil, eris.Wrap(err, "ocr: write temp file")
	}
	if err := f.Close(); err != nil {
		return nil, eris.Wrap(err, "ocr: close temp file")
	}

	text, err := p.run(ctx, p.binPath, "-layout", path, "-")
	if err != nil {
		return nil, eris.Wrap(err, "ocr: pdftotext failed")
	}

	doc := &extract.Document{Text: text}
	info, err := p.run(ctx, p.infoPath, path)
	if err != nil {
		zap.L().Debug("ocr: pdfinfo unavailable", zap.Error(err))
	} else {
		doc.Info, doc.NumPages = parsePdfInfo(info)
	}
	if doc.NumPages == 0 {
		doc.NumPages = strings.Count(text, "\f") + 1
	}
	return doc, nil
}

func (p *PdfToText) run(ctx context.Context, bin string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, bin, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return "", eris.Wrapf(err, "%s: %s", bin, strings.TrimSpace(stderr.String()))
	}
	return stdout.String(), nil
}

// parsePdfInfo reads the "Key:   value" lines pdfinfo prints.
func parsePdfInfo(out string) (extract.DocumentInfo, int) {
	var info extract.DocumentInfo
	pages := 0
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		key, value, ok := strings.Cut(sc.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Title":
			info.Title = value
		case "Author":
			info.Author = value
		case "Subject":
			info.Subject = value
		case "CreationDate":
			info.CreationDate = value
		case "Pages":
			pages, _ = strconv.Atoi(value)
		}
	}
	return info, pages
}
