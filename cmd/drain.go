package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/article-digest/internal/pipeline"
	"github.com/sells-group/article-digest/internal/queue"
)

var (
	drainLimit int
	drainSave  bool
)

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Process queued links, re-queueing them if the run fails",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline("", "")
		if err != nil {
			return err
		}

		limit := drainLimit
		if limit <= 0 {
			limit = cfg.Pipeline.MaxLinksPerRun
		}
		q := initQueue()
		entries, remaining, err := q.PopPending(limit)
		if err != nil {
			return eris.Wrap(err, "drain: pop queue")
		}
		if len(entries) == 0 {
			fmt.Fprintln(os.Stderr, "No queued links to process.")
			return nil
		}
		zap.L().Info("draining queued links", zap.Int("count", len(entries)), zap.Int("remaining", remaining))

		runErr := drainBatch(entries, q, func(urls []string) error {
			result, err := env.Coordinator.Process(ctx, urls, pipeline.OptionsFromConfig(cfg.Pipeline))
			if err != nil {
				return err
			}
			formatRunSummary(os.Stdout, result)
			if drainSave {
				return saveRun(ctx, result, "", "drained from queue")
			}
			return nil
		})
		if runErr != nil {
			return eris.Wrap(runErr, "drain")
		}
		zap.L().Info("queue processed successfully")
		return nil
	},
}

// drainBatch runs the entries' URLs and pushes the entries back onto the
// queue when run fails.
func drainBatch(entries []queue.Entry, q *queue.Queue, run func(urls []string) error) error {
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		urls = append(urls, e.URL)
	}
	err := run(urls)
	if err == nil {
		return nil
	}

	zap.L().Error("queue processing failed, re-queueing links", zap.Error(err))
	if _, pushErr := q.PushEntries(entries); pushErr != nil {
		zap.L().Error("re-queue failed", zap.Error(pushErr))
	}
	return err
}

func init() {
	drainCmd.Flags().IntVarP(&drainLimit, "limit", "n", 0, "max links to process (default pipeline.max_links_per_run)")
	drainCmd.Flags().BoolVar(&drainSave, "save", false, "save the run as a digest")
	rootCmd.AddCommand(drainCmd)
}
