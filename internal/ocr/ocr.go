// Package ocr turns PDF payloads into text, either locally with poppler's
// pdftotext/pdfinfo or remotely with Mistral OCR.
package ocr

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/config"
	"github.com/sells-group/article-digest/internal/extract"
)

// NewExtractor creates the extract.TextExtractor named by cfg.Extractor.
func NewExtractor(cfg config.PDFConfig) (extract.TextExtractor, error) {
	switch cfg.Extractor {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath, cfg.PdfInfoPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("ocr: mistral extractor requires pdf.mistral_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("ocr: unknown extractor %q", cfg.Extractor)
	}
}
