package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/article-digest/internal/model"
	"github.com/sells-group/article-digest/internal/review"
	"github.com/sells-group/article-digest/internal/store"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Inspect and review saved digests",
}

// -- digest list --

var digestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List saved digests, newest first",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		limit, _ := cmd.Flags().GetInt("limit")
		since, _ := cmd.Flags().GetDuration("since")
		filter := store.ListFilter{Limit: limit}
		if since > 0 {
			filter.Since = time.Now().Add(-since)
		}

		digests, err := st.List(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "digest list")
		}
		if len(digests) == 0 {
			fmt.Fprintln(os.Stderr, "No digests found.")
			return nil
		}
		formatDigestList(os.Stdout, digests)
		return nil
	},
}

// -- digest get --

var digestGetCmd = &cobra.Command{
	Use:   "get <digest-id>",
	Short: "Print a digest as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		d, err := st.Get(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "digest get")
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(d)
	},
}

// -- digest review --

var digestReviewCmd = &cobra.Command{
	Use:   "review <digest-id> <record-id>",
	Short: "Set a record's review stage or shortlist flag",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		stage, _ := cmd.Flags().GetString("stage")
		shortlisted, _ := cmd.Flags().GetString("shortlisted")
		actor, _ := cmd.Flags().GetString("actor")
		notes, _ := cmd.Flags().GetString("notes")

		upd, err := buildReviewUpdate(args[1], stage, shortlisted, cliActor(actor), notes)
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		updated, err := st.Update(ctx, args[0], func(current *model.Digest) (*model.Digest, error) {
			next, _, err := review.Apply(current, upd)
			return next, err
		})
		if err != nil {
			return eris.Wrap(err, "digest review")
		}
		rec, _ := updated.Record(args[1])
		fmt.Fprintf(os.Stdout, "%s: stage=%s shortlisted=%t (digest shortlisted %d/%d)\n",
			rec.ID, rec.ReviewStage, rec.Shortlisted, updated.Summary.ShortlistedTotal, len(updated.Records))
		return nil
	},
}

// buildReviewUpdate validates the review flags. Empty stage and shortlisted
// values leave those fields unchanged.
func buildReviewUpdate(recordID, stage, shortlisted, actor, notes string) (review.Update, error) {
	upd := review.Update{RecordID: recordID, Actor: actor, Notes: notes, Timestamp: time.Now().UTC()}
	if stage != "" {
		if !model.IsReviewStage(stage) {
			return upd, eris.Wrapf(model.ErrInvalidInput, "unknown review stage %q", stage)
		}
		upd.ReviewStage = &stage
	}
	if shortlisted != "" {
		b, err := strconv.ParseBool(shortlisted)
		if err != nil {
			return upd, eris.Wrapf(model.ErrInvalidInput, "shortlisted must be true or false, got %q", shortlisted)
		}
		upd.Shortlisted = &b
	}
	if upd.ReviewStage == nil && upd.Shortlisted == nil {
		return upd, eris.Wrap(model.ErrInvalidInput, "pass --stage or --shortlisted")
	}
	return upd, nil
}

// -- digest clear --

var digestClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every saved digest",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return eris.New("refusing to clear digests without --yes")
		}
		ctx := cmd.Context()
		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Clear(ctx); err != nil {
			return eris.Wrap(err, "digest clear")
		}
		fmt.Fprintln(os.Stdout, "All digests cleared.")
		return nil
	},
}

func init() {
	digestListCmd.Flags().Int("limit", 20, "max number of digests to display")
	digestListCmd.Flags().Duration("since", 0, "only digests created within this window (e.g. 24h)")

	digestReviewCmd.Flags().String("stage", "", "review stage (analyst_review, awaiting_manager, needs_revision, shortlisted, saved_for_later)")
	digestReviewCmd.Flags().String("shortlisted", "", "true or false")
	digestReviewCmd.Flags().String("actor", "", "reviewer recorded in history")
	digestReviewCmd.Flags().String("notes", "", "note recorded in history")

	digestClearCmd.Flags().Bool("yes", false, "confirm deletion")

	digestCmd.AddCommand(digestListCmd)
	digestCmd.AddCommand(digestGetCmd)
	digestCmd.AddCommand(digestReviewCmd)
	digestCmd.AddCommand(digestClearCmd)
	rootCmd.AddCommand(digestCmd)
}

// formatDigestList writes a tabular list of digests to out.
func formatDigestList(out io.Writer, digests []model.Digest) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tCREATED\tRECORDS\tSHORTLISTED\tACTOR")
	for _, d := range digests {
		actor := "-"
		if d.Metadata != nil && d.Metadata.Actor != "" {
			actor = d.Metadata.Actor
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
			d.ID, d.CreatedAt.Format("2006-01-02 15:04"), d.Summary.Total, d.Summary.ShortlistedTotal, actor)
	}
	_ = w.Flush()
}
