package main

import (
	"context"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/config"
	"github.com/sells-group/article-digest/internal/extract/provider"
	"github.com/sells-group/article-digest/internal/fetcher"
	"github.com/sells-group/article-digest/internal/intake"
	"github.com/sells-group/article-digest/internal/pipeline"
	"github.com/sells-group/article-digest/internal/queue"
	"github.com/sells-group/article-digest/internal/review"
	"github.com/sells-group/article-digest/internal/scorer"
	"github.com/sells-group/article-digest/internal/store"
)

// pipelineEnv holds what the run, drain, and serve commands need.
type pipelineEnv struct {
	Registry    *provider.Registry
	Coordinator *pipeline.Coordinator
}

// initPipeline applies the providers file (flag value first, then config)
// and the scoring mode override, and builds the coordinator.
func initPipeline(providersFile, mode string) (*pipelineEnv, error) {
	if providersFile == "" {
		providersFile = cfg.Pipeline.ProvidersFile
	}
	pf, err := config.LoadProvidersFile(providersFile)
	if err != nil {
		return nil, err
	}
	pf.Apply(cfg)

	if mode == "" {
		mode = cfg.Pipeline.ScoringMode
	}
	sc, err := scorer.New(mode)
	if err != nil {
		return nil, err
	}

	reg, err := provider.NewRegistry(cfg, pf.Disabled())
	if err != nil {
		return nil, eris.Wrap(err, "init providers")
	}
	zap.L().Debug("pipeline initialized",
		zap.String("scoring_mode", sc.Mode()),
		zap.Strings("order", reg.Order),
	)
	return &pipelineEnv{
		Registry:    reg,
		Coordinator: pipeline.New(cfg, reg, sc),
	}, nil
}

func initStore(ctx context.Context) (store.DigestStore, error) {
	st, err := store.Open(ctx, cfg.Store)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	return st, nil
}

func initQueue() *queue.Queue {
	return queue.New(cfg.Queue.Path)
}

// collectURLs gathers links from positional args, an input file, and a
// feed, in that order.
func collectURLs(ctx context.Context, f fetcher.PageFetcher, args []string, inputFile, feedURL string, limit int) ([]string, error) {
	urls := intake.ParseList(strings.Join(args, "\n"))
	if inputFile != "" {
		fromFile, err := intake.ReadFile(inputFile)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFile...)
	}
	if feedURL != "" {
		fromFeed, err := intake.NewFeedReader(f).Links(ctx, feedURL, limit)
		if err != nil {
			return nil, err
		}
		urls = append(urls, fromFeed...)
	}
	return urls, nil
}

// cliActor names the operator for digest metadata and review history.
func cliActor(flag string) string {
	return review.ResolveActor(flag, os.Getenv("DIGEST_ACTOR"), os.Getenv("USER"))
}
