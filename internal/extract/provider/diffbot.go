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
	"github.com/sells-group/article-digest/pkg/diffbot"
)

// Diffbot fills article fields from the Diffbot article API.
type Diffbot struct {
	client  diffbot.Client
	enabled bool
	breaker *resilience.CircuitBreaker
}

// NewDiffbot creates the diffbot provider. A nil client means the token is
// missing: the provider still runs when enabled and records a skip.
func NewDiffbot(client diffbot.Client, enabled bool, breaker *resilience.CircuitBreaker) *Diffbot {
	return &Diffbot{client: client, enabled: enabled, breaker: breaker}
}

func (p *Diffbot) Name() string { return extract.ProviderDiffbot }

func (p *Diffbot) Supports(url string) bool {
	return p.enabled && !extract.IsBinaryDocument(url)
}

func (p *Diffbot) Execute(ctx context.Context, ec *extract.Context) error {
	name := p.Name()
	if p.client == nil {
		ec.AddNote("Diffbot disabled (missing token)")
		ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeSkipped, Reason: "missing-token"})
		return nil
	}

	resp, err := p.call(ctx, ec.URL)
	if err != nil {
		var apiErr *diffbot.APIError
		if errors.As(err, &apiErr) {
			ec.AddNote(fmt.Sprintf("Diffbot failed: status %d", apiErr.StatusCode))
			ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeError, StatusCode: apiErr.StatusCode})
			return nil
		}
		zap.L().Warn("diffbot: request failed", zap.String("url", ec.URL), zap.Error(err))
		ec.AddNote(fmt.Sprintf("Diffbot error: %s", err.Error()))
		ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeError, Error: err.Error()})
		return nil
	}

	if len(resp.Objects) == 0 {
		ec.AddNote("Diffbot returned no article object")
		ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeEmpty, StatusCode: 200})
		return nil
	}

	a := resp.Objects[0]
	text := strings.TrimSpace(a.Text)
	ec.SetField(extract.FieldTitle, a.Title, name)
	ec.SetField(extract.FieldBody, text, name)
	ec.SetField(extract.FieldWordCount, extract.WordCount(text), name)
	ec.SetField(extract.FieldAuthor, a.Author, name)
	ec.SetField(extract.FieldPublicationDate, a.Date, name)
	ec.SetField(extract.FieldPublishedOn, a.SiteName, name)
	ec.SetField(extract.FieldPublisher, a.SiteName, name)
	ec.SetField(extract.FieldLanguage, isoLanguage(a.Language), name)
	ec.SetField(extract.FieldTags, extract.MergeTags(a.Labels()), name)
	if a.PageURL != "" && a.PageURL != ec.URL {
		ec.SetField(extract.FieldFinalURL, a.PageURL, name)
	}

	ec.AddNote("Diffbot fallback used")
	ec.RecordOutcome(name, model.ProviderOutcome{Status: model.OutcomeOK, StatusCode: 200})
	return nil
}

func (p *Diffbot) call(ctx context.Context, url string) (*diffbot.ArticleResponse, error) {
	if p.breaker == nil {
		return p.client.Article(ctx, url)
	}
	return resilience.ExecuteVal(ctx, p.breaker, func(ctx context.Context) (*diffbot.ArticleResponse, error) {
		return p.client.Article(ctx, url)
	})
}
