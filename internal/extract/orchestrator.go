package extract

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/model"
)

// Options are per-run settings visible to providers.
type Options struct {
	DisableBrowser   bool
	ExpectedLanguage string
}

// Orchestrator runs the selected providers against a URL one at a time.
type Orchestrator struct {
	selector *Selector
}

// NewOrchestrator creates an Orchestrator that draws providers from selector.
func NewOrchestrator(selector *Selector) *Orchestrator {
	return &Orchestrator{selector: selector}
}

// Run executes the provider chain for url and returns the filled Context.
// Provider failures are recorded on the Context and never returned.
func (o *Orchestrator) Run(ctx context.Context, url string, opts Options) *Context {
	ec := NewContext(url)
	ec.DisableBrowser = opts.DisableBrowser
	ec.ExpectedLanguage = opts.ExpectedLanguage

	for _, p := range o.selector.Select(url) {
		o.runProvider(ctx, p, ec)
	}
	return ec
}

func (o *Orchestrator) runProvider(ctx context.Context, p Provider, ec *Context) {
	defer func() {
		if r := recover(); r != nil {
			recordException(ec, p.Name(), eris.Errorf("panic: %v", r))
		}
	}()

	if !p.Supports(ec.URL) {
		return
	}
	if err := p.Execute(ctx, ec); err != nil {
		recordException(ec, p.Name(), err)
	}
}

func recordException(ec *Context, provider string, err error) {
	zap.L().Warn("extract: provider failed",
		zap.String("provider", provider),
		zap.String("url", ec.URL),
		zap.Error(err),
	)
	ec.AddNote(fmt.Sprintf("%s exception: %s", provider, err.Error()))
	ec.RecordOutcome(provider, model.ProviderOutcome{
		Status: model.OutcomeException,
		Error:  err.Error(),
	})
}
