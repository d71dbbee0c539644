package provider

import (
	"errors"

	"github.com/rotisserie/eris"

	"github.com/sells-group/article-digest/internal/config"
	"github.com/sells-group/article-digest/internal/extract"
	"github.com/sells-group/article-digest/internal/fetcher"
	"github.com/sells-group/article-digest/internal/ocr"
	"github.com/sells-group/article-digest/internal/readability"
	"github.com/sells-group/article-digest/internal/render"
	"github.com/sells-group/article-digest/internal/resilience"
	"github.com/sells-group/article-digest/pkg/diffbot"
	"github.com/sells-group/article-digest/pkg/trafilatura"
)

// RendererFactory opens a Renderer for one batch. It may return nil when no
// rendering backend is configured.
type RendererFactory func() (extract.Renderer, error)

// Registry holds the long-lived collaborators shared by every batch and
// assembles the provider chain around a per-batch Renderer.
type Registry struct {
	Fetcher     fetcher.PageFetcher
	Parser      extract.ReadabilityParser
	Scraper     extract.MetadataScraper
	PDF         extract.TextExtractor
	Diffbot     diffbot.Client
	Trafilatura trafilatura.Client
	NewRenderer RendererFactory

	DiffbotEnabled bool
	Order          []string
	Disabled       map[string]bool

	diffbotBreaker     *resilience.CircuitBreaker
	trafilaturaBreaker *resilience.CircuitBreaker
}

// NewRegistry wires the collaborators described by cfg. disabled names
// providers switched off by the providers file.
func NewRegistry(cfg *config.Config, disabled map[string]bool) (*Registry, error) {
	pdf, err := ocr.NewExtractor(cfg.PDF)
	if err != nil {
		return nil, eris.Wrap(err, "provider: pdf extractor")
	}

	reg := &Registry{
		Fetcher: fetcher.New(fetcher.Options{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     cfg.Fetch.Timeout(),
			RatePerHost: cfg.Fetch.RatePerHost,
			Burst:       cfg.Fetch.Burst,
		}),
		Parser:         readability.NewParser(),
		Scraper:        readability.NewMetadataScraper(),
		PDF:            pdf,
		DiffbotEnabled: cfg.Diffbot.Enabled,
		Order:          cfg.Pipeline.Order,
		Disabled:       disabled,
		NewRenderer:    renderFactory(cfg),
	}

	if cfg.Diffbot.Enabled && cfg.Diffbot.Token != "" {
		reg.Diffbot = diffbot.NewClient(cfg.Diffbot.Token, diffbot.WithEndpoint(cfg.Diffbot.Endpoint))
		reg.diffbotBreaker = resilience.NewCircuitBreaker("diffbot", remoteBreaker(func(err error) (int, bool) {
			var apiErr *diffbot.APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode, true
			}
			return 0, false
		}))
	}
	if cfg.Trafilatura.Enabled && cfg.Trafilatura.Endpoint != "" {
		reg.Trafilatura = trafilatura.NewClient(cfg.Trafilatura.Endpoint)
		reg.trafilaturaBreaker = resilience.NewCircuitBreaker("trafilatura", remoteBreaker(func(err error) (int, bool) {
			var apiErr *trafilatura.APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode, true
			}
			return 0, false
		}))
	}
	return reg, nil
}

// remoteBreaker counts transport failures and transient HTTP statuses; a
// 4xx from the service does not trip the circuit.
func remoteBreaker(status func(error) (int, bool)) resilience.BreakerConfig {
	cfg := resilience.NewBreakerConfig(5, 60)
	cfg.ShouldTrip = func(err error) bool {
		if code, ok := status(err); ok {
			return resilience.IsTransientHTTPStatus(code)
		}
		return true
	}
	return cfg
}

func renderFactory(cfg *config.Config) RendererFactory {
	return func() (extract.Renderer, error) {
		r, err := render.New(render.Options{
			Backend:      cfg.Render.Backend,
			Timeout:      cfg.Render.Timeout(),
			JinaKey:      cfg.Jina.Key,
			JinaURL:      cfg.Jina.BaseURL,
			FirecrawlKey: cfg.Firecrawl.Key,
			FirecrawlURL: cfg.Firecrawl.BaseURL,
			Breaker:      resilience.NewBreakerConfig(3, 30),
		})
		if err != nil {
			return nil, err
		}
		if r == nil {
			return nil, nil
		}
		return r, nil
	}
}

// Providers returns every provider, wired to renderer. A nil renderer leaves
// the render provider unsupported.
func (r *Registry) Providers(renderer extract.Renderer) []extract.Provider {
	return []extract.Provider{
		NewRender(renderer),
		NewBasicHTTP(r.Fetcher),
		NewReadability(r.Parser, r.Scraper),
		NewPDF(r.Fetcher, r.PDF),
		NewTrafilatura(r.Trafilatura, r.trafilaturaBreaker),
		NewDiffbot(r.Diffbot, r.DiffbotEnabled, r.diffbotBreaker),
	}
}

// Orchestrator builds an orchestrator over the configured order and
// disabled set for one batch.
func (r *Registry) Orchestrator(renderer extract.Renderer) *extract.Orchestrator {
	return extract.NewOrchestrator(extract.NewSelector(r.Providers(renderer), r.Order, r.Disabled))
}

// OpenRenderer opens the batch renderer, or returns nil when none is
// configured.
func (r *Registry) OpenRenderer() (extract.Renderer, error) {
	if r.NewRenderer == nil {
		return nil, nil
	}
	return r.NewRenderer()
}
