// Package pipeline runs batches of URLs through the extraction chain and
// turns each result into a scored, possibly redacted, article record.
package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/config"
	"github.com/sells-group/article-digest/internal/extract"
	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/scorer"
)

// Engine assembles the provider chain for a batch.
type Engine interface {
	OpenRenderer() (extract.Renderer, error)
	Orchestrator(renderer extract.Renderer) *extract.Orchestrator
}

// Options are per-run settings.
type Options struct {
	DisableBrowser   bool
	ExpectedLanguage string
	WriteArtifacts   bool
}

// OptionsFromConfig returns the configured run defaults.
func OptionsFromConfig(cfg config.PipelineConfig) Options {
	return Options{
		DisableBrowser:   cfg.DisableBrowser,
		ExpectedLanguage: cfg.ExpectedLanguage,
		WriteArtifacts:   cfg.WriteArtifacts,
	}
}

// Coordinator processes URL batches one URL at a time.
type Coordinator struct {
	engine    Engine
	scorer    *scorer.Scorer
	maxLinks  int
	outputDir string
}

// New creates a Coordinator.
func New(cfg *config.Config, engine Engine, sc *scorer.Scorer) *Coordinator {
	return &Coordinator{
		engine:    engine,
		scorer:    sc,
		maxLinks:  cfg.Pipeline.MaxLinksPerRun,
		outputDir: cfg.Pipeline.OutputDir,
	}
}

// Prepare sanitizes urls for a run and rejects a list with nothing to
// process.
func (c *Coordinator) Prepare(urls []string) ([]string, error) {
	targets := SanitizeURLs(urls, c.maxLinks)
	if len(targets) == 0 {
		return nil, eris.Wrap(model.ErrInvalidInput, "pipeline: no valid URLs provided")
	}
	return targets, nil
}

// Process runs every URL in urls and returns the batch result. Artifacts
// are written to the output directory when opts.WriteArtifacts is set.
func (c *Coordinator) Process(ctx context.Context, urls []string, opts Options) (*model.RunResult, error) {
	targets, err := c.Prepare(urls)
	if err != nil {
		return nil, err
	}

	log := zap.L().With(zap.Int("urls", len(targets)))
	log.Info("pipeline: starting run")
	started := time.Now()

	orch, release := c.open(opts)
	defer release()

	records := make([]model.ArticleRecord, 0, len(targets))
	for _, u := range targets {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "pipeline: run cancelled")
		}
		rec, err := c.processURL(ctx, orch, u, opts)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	result := &model.RunResult{
		Metadata: model.RunMetadata{
			StartedAt:     started.UTC(),
			DurationMs:    time.Since(started).Milliseconds(),
			Total:         len(records),
			ProvidersUsed: providersUsed(records),
		},
		Records: records,
	}
	log.Info("pipeline: run complete", zap.Int64("duration_ms", result.Metadata.DurationMs))

	if opts.WriteArtifacts {
		if err := WriteArtifacts(c.outputDir, targets, *result); err != nil {
			return result, err
		}
	}
	return result, nil
}

// open builds the orchestrator for one batch and returns a release func
// that closes the batch renderer.
func (c *Coordinator) open(opts Options) (*extract.Orchestrator, func()) {
	var renderer extract.Renderer
	if !opts.DisableBrowser {
		r, err := c.engine.OpenRenderer()
		if err != nil {
			zap.L().Warn("pipeline: renderer unavailable, continuing without it", zap.Error(err))
		} else {
			renderer = r
		}
	}

	release := func() {
		if renderer == nil {
			return
		}
		if err := renderer.Close(); err != nil {
			zap.L().Warn("pipeline: close renderer", zap.Error(err))
		}
	}
	return c.engine.Orchestrator(renderer), release
}

// processURL extracts and scores a single URL. Provider failures end up in
// the record; only a fault in record assembly is returned.
func (c *Coordinator) processURL(ctx context.Context, orch *extract.Orchestrator, url string, opts Options) (rec model.ArticleRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = eris.Errorf("pipeline: processing %s: %v", url, r)
		}
	}()

	start := time.Now()
	ec := orch.Run(ctx, url, extract.Options{
		DisableBrowser:   opts.DisableBrowser,
		ExpectedLanguage: opts.ExpectedLanguage,
	})
	rec = BuildRecord(ec, c.scorer)

	zap.L().Info("pipeline: processed url",
		zap.String("url", url),
		zap.String("provider", rec.Provider),
		zap.Int("score", rec.Confidence.Score),
		zap.String("tier", string(rec.Confidence.Tier)),
		zap.Bool("redacted", rec.Redacted),
		zap.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return rec, nil
}

func providersUsed(records []model.ArticleRecord) []string {
	lists := make([][]string, 0, len(records))
	for _, r := range records {
		lists = append(lists, r.ProvidersUsed)
	}
	return unionProviders(lists...)
}
