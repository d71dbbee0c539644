package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/extract"
	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/resilience"
	"github.com/sells-group/article-digest/pkg/trafilatura"
)

// Trafilatura asks a self-hosted trafilatura service to extract the article,
// passing along any markup already captured.
type Trafilatura struct {
	client  trafilatura.Client
	breaker *resilience.CircuitBreaker
}

// NewTrafilatura creates the trafilatura provider. A nil client disables it.
func NewTrafilatura(client trafilatura.Client, breaker *resilience.CircuitBreaker) *Trafilatura {
	return &Trafilatura{client: client, breaker: breaker}
}

func (p *Trafilatura) Name() string { return extract.ProviderTrafilatura }

func (p *Trafilatura) Supports(url string) bool {
	return p.client != nil && !extract.IsBinaryDocument(url)
}

func (p *Trafilatura) Execute(ctx context.Context, ec *extract.Context) error {
	name := p.Name()
	req := trafilatura.ExtractRequest{URL: ec.URL, HTML: ec.HTML()}

	resp, err := p.call(ctx, req)
	if err != nil {
		var apiErr *trafilatura.APIError
		if errors.As(err, &apiErr) {
			ec.AddNote(fmt.Sprintf("Trafilatura failed: status %d", apiErr.StatusCode))
			ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeError, StatusCode: apiErr.StatusCode})
			return nil
		}
		zap.L().Warn("trafilatura: request failed", zap.String("url", ec.URL), zap.Error(err))
		ec.AddNote(fmt.Sprintf("Trafilatura error: %s", err.Error()))
		ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeError, Error: err.Error()})
		return nil
	}

	text := strings.TrimSpace(resp.Text)
	if text == "" && strings.TrimSpace(resp.Title) == "" {
		ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeEmpty, StatusCode: 200})
		return nil
	}

	ec.SetField(extract.FieldTitle, resp.Title, name)
	ec.SetField(extract.FieldAuthor, resp.Author, name)
	ec.SetField(extract.FieldPublicationDate, resp.PublishedAt(), name)
	ec.SetField(extract.FieldBody, text, name)
	ec.SetField(extract.FieldWordCount, extract.WordCount(text), name)
	lang := isoLanguage(resp.Language)
	if lang == "" {
		lang = extract.DetectLanguage(text)
	}
	ec.SetField(extract.FieldLanguage, lang, name)
	ec.SetField(extract.FieldTags, extract.MergeTags(resp.Tags), name)

	ec.AddNote("Trafilatura fallback used")
	ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeOK, StatusCode: 200})
	return nil
}

func (p *Trafilatura) call(ctx context.Context, req trafilatura.ExtractRequest) (*trafilatura.ExtractResponse, error) {
	if p.breaker == nil {
		return p.client.Extract(ctx, req)
	}
	return resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (*trafilatura.ExtractResponse, error) {
		return p.client.Extract(ctx, req)
	})
}
