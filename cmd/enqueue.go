package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/article-digest/internal/fetcher"
	"github.com/sells-group/article-digest/internal/queue"
)

var (
	enqueueInput       string
	enqueueFeed        string
	enqueueSource      string
	enqueueSubmittedBy string
)

var enqueueCmd = &cobra.Command{
	Use:   "enqueue [urls...]",
	Short: "Add links to the pending queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		f := fetcher.New(fetcher.Options{
			UserAgent:   cfg.Fetch.UserAgent,
			Timeout:     cfg.Fetch.Timeout(),
			RatePerHost: cfg.Fetch.RatePerHost,
			Burst:       cfg.Fetch.Burst,
		})
		urls, err := collectURLs(ctx, f, args, enqueueInput, enqueueFeed, 0)
		if err != nil {
			return err
		}
		if len(urls) == 0 {
			return eris.New("no URLs provided")
		}

		q := initQueue()
		results := make([]queue.EnqueueResult, 0, len(urls))
		for _, u := range urls {
			res, err := q.Enqueue(queue.Submission{
				URL:          u,
				SubmittedBy:  cliActor(enqueueSubmittedBy),
				Source:       enqueueSource,
				OriginalText: u,
			})
			if err != nil {
				return eris.Wrap(err, "enqueue")
			}
			results = append(results, res)
		}
		formatEnqueueResults(os.Stdout, urls, results)
		return nil
	},
}

func formatEnqueueResults(out io.Writer, urls []string, results []queue.EnqueueResult) {
	added, length := 0, 0
	for i, res := range results {
		length = res.QueueLength
		if res.Added {
			added++
			_, _ = fmt.Fprintf(out, "queued   %s\n", res.Entry.URL)
			continue
		}
		_, _ = fmt.Fprintf(out, "skipped  %s (%s)\n", urls[i], res.Reason)
	}
	_, _ = fmt.Fprintf(out, "%d added, queue length %d\n", added, length)
}

func init() {
	enqueueCmd.Flags().StringVarP(&enqueueInput, "input", "i", "", "file with one URL per line")
	enqueueCmd.Flags().StringVar(&enqueueFeed, "feed", "", "RSS or Atom feed whose item links are queued")
	enqueueCmd.Flags().StringVar(&enqueueSource, "source", "cli", "source recorded on queued entries")
	enqueueCmd.Flags().StringVar(&enqueueSubmittedBy, "submitted-by", "", "submitter recorded on queued entries")
	rootCmd.AddCommand(enqueueCmd)
}
