package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/pipeline"
)

type runFlags struct {
	input       string
	feed        string
	providers   string
	noBrowser   bool
	language    string
	mode        string
	noArtifacts bool
	save        bool
	actor       string
	note        string
}

var runOpts runFlags

var runCmd = &cobra.Command{
	Use:   "run [urls...]",
	Short: "Extract and score a batch of article links",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(runOpts.providers, runOpts.mode)
		if err != nil {
			return err
		}

		urls, err := collectURLs(ctx, env.Registry.Fetcher, args, runOpts.input, runOpts.feed, cfg.Pipeline.MaxLinksPerRun)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return eris.New("no URLs provided; pass links as arguments, --input <file>, or --feed <url>")
		}

		result, err := env.Coordinator.Process(ctx, urls, runOpts.options(pipeline.OptionsFromConfig(cfg.Pipeline)))
		if err != nil {
			return eris.Wrap(err, "run")
		}
		formatRunSummary(os.Stdout, result)

		if runOpts.save {
			return saveRun(ctx, result, runOpts.actor, runOpts.note)
		}
		return nil
	},
}

// options overlays the command flags on the configured defaults.
func (f runFlags) options(base pipeline.Options) pipeline.Options {
	if f.noBrowser {
		base.DisableBrowser = true
	}
	if f.language != "" {
		base.ExpectedLanguage = f.language
	}
	if f.noArtifacts {
		base.WriteArtifacts = false
	}
	return base
}

// saveRun stores result as a new digest and prints its id.
func saveRun(ctx context.Context, result *model.RunResult, actor, note string) error {
	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	d := model.NewDigest(result.Records, result.Metadata.DurationMs, &model.DigestMetadata{
		Actor:      cliActor(actor),
		CreatedVia: "cli",
		Note:       note,
	})
	saved, err := st.Save(ctx, d)
	if err != nil {
		return eris.Wrap(err, "save digest")
	}
	zap.L().Info("digest saved", zap.String("digest_id", saved.ID), zap.Int("records", len(saved.Records)))
	fmt.Fprintf(os.Stdout, "Saved digest %s\n", saved.ID)
	return nil
}

// formatRunSummary writes one row per record to out.
func formatRunSummary(out io.Writer, result *model.RunResult) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "#\tCONFIDENCE\tTIER\tPROVIDER\tREDACTED\tURL")
	for i, r := range result.Records {
		_, _ = fmt.Fprintf(w, "%d\t%s %d%%\t%s\t%s\t%t\t%s\n",
			i+1, r.Confidence.Emoji, r.Confidence.Score, r.Confidence.Tier, r.Provider, r.Redacted, r.URL)
	}
	_ = w.Flush()
	_, _ = fmt.Fprintf(out, "\nProcessed %d links in %d ms\n", result.Metadata.Total, result.Metadata.DurationMs)
}

func init() {
	f := runCmd.Flags()
	f.StringVarP(&runOpts.input, "input", "i", "", "file with one URL per line")
	f.StringVar(&runOpts.feed, "feed", "", "RSS or Atom feed whose item links are added to the batch")
	f.StringVar(&runOpts.providers, "providers", "", "providers file (YAML or JSON)")
	f.BoolVar(&runOpts.noBrowser, "no-browser", false, "skip the rendering provider")
	f.StringVar(&runOpts.language, "language", "", "expected ISO 639-3 language (default from config)")
	f.StringVar(&runOpts.mode, "mode", "", "scoring mode: weighted or bounded (default from config)")
	f.BoolVar(&runOpts.noArtifacts, "no-artifacts", false, "do not write output files")
	f.BoolVar(&runOpts.save, "save", false, "save the run as a digest")
	f.StringVar(&runOpts.actor, "actor", "", "actor recorded on a saved digest")
	f.StringVar(&runOpts.note, "note", "", "note recorded on a saved digest")
	rootCmd.AddCommand(runCmd)
}
