package provider

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/extract"
	"github.com/sells-group/article-digest/internal/fetcher"
	"github.com/sells-group/article-digest/internal/model"
)

// BasicHTTP fetches the raw page with a plain GET.
type BasicHTTP struct {
	fetcher fetcher.PageFetcher
}

// NewBasicHTTP creates the basic-http provider.
func NewBasicHTTP(f fetcher.PageFetcher) *BasicHTTP {
	return &BasicHTTP{fetcher: f}
}

func (p *BasicHTTP) Name() string { return extract.ProviderHTTP }

func (p *BasicHTTP) Supports(url string) bool {
	return p.fetcher != nil && !extract.IsBinaryDocument(url)
}

func (p *BasicHTTP) Execute(ctx context.Context, ec *extract.Context) error {
	page, err := p.fetcher.Fetch(ctx, ec.URL)
	if err != nil {
		zap.L().Warn("basic-http: fetch failed", zap.String("url", ec.URL), zap.Error(err))
		ec.AddNote(fmt.Sprintf("HTTP fetch failed: %s", err.Error()))
		ec.RecordOutcome(p.Name(), model.ProviderOutcome{Status: model.OutcomeException, Error: err.Error()})
		return nil
	}

	if page.Block != nil {
		ec.AddNote(page.Block.Note())
		ec.RecordOutcome(p.Name(), model.ProviderOutcome{
			Status:     model.OutcomeError,
			StatusCode: page.StatusCode,
			Reason:     page.Block.Reason(),
		})
		return nil
	}

	if !page.OK() {
		ec.AddNote(fmt.Sprintf("HTTP fetch failed: status %d", page.StatusCode))
		ec.RecordOutcome(p.Name(), model.ProviderOutcome{Status: model.OutcomeError, StatusCode: page.StatusCode})
		return nil
	}

	ec.RecordOutcome(p.Name(), model.ProviderOutcome{Status: model.OutcomeOK, StatusCode: page.StatusCode})
	if strings.TrimSpace(page.HTML) == "" {
		return nil
	}
	ec.SetHTML(page.HTML, p.Name())
	ec.SetText(extract.VisibleText(page.HTML), p.Name())
	if page.FinalURL != "" && page.FinalURL != ec.URL {
		ec.SetField(extract.FieldFinalURL, page.FinalURL, p.Name())
	}
	return nil
}
