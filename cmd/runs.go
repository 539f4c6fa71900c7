package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/enrich-cli/internal/model"
	"github.com/sells-group/enrich-cli/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect enrichment attempt history",
	Long:  "Commands for listing, viewing, and summarizing recorded enrichment attempts.",
}

// openHistory validates the config and opens the attempt store.
func openHistory(cmd *cobra.Command) (store.Store, error) {
	if err := cfg.Validate("runs"); err != nil {
		return nil, err
	}
	st, err := initStore(cmd.Context())
	if err != nil {
		return nil, err
	}
	if st == nil {
		return nil, eris.New("attempt history is disabled (store.driver=none)")
	}
	return st, nil
}

// -- runs list --

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List enrichment attempts",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		person, _ := cmd.Flags().GetString("person")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		attempts, err := st.ListAttempts(ctx, model.AttemptFilter{
			PersonID: person,
			Status:   model.EnrichmentStatus(status),
			Limit:    limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(attempts) == 0 {
			fmt.Fprintln(os.Stderr, "No attempts found.")
			return nil
		}

		formatAttemptsList(os.Stdout, attempts)
		return nil
	},
}

// -- runs show --

var runsShowCmd = &cobra.Command{
	Use:   "show <attempt-id>",
	Short: "Show full details of an attempt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		attempt, err := st.GetAttempt(ctx, args[0])
		if err != nil {
			return eris.Wrap(err, "runs show")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(attempt)
	},
}

// -- runs stats --

var runsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show aggregate attempt statistics",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := openHistory(cmd)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		since, _ := cmd.Flags().GetDuration("since")
		filter := model.AttemptFilter{Limit: 10000}
		if since > 0 {
			filter.StartedAfter = time.Now().Add(-since)
		}

		attempts, err := st.ListAttempts(ctx, filter)
		if err != nil {
			return eris.Wrap(err, "runs stats")
		}

		formatAttemptStats(os.Stdout, computeAttemptStats(attempts))
		return nil
	},
}

func init() {
	runsListCmd.Flags().String("person", "", "filter by person page ID")
	runsListCmd.Flags().String("status", "", "filter by status (Completed, Partial, Failed)")
	runsListCmd.Flags().Int("limit", 50, "max number of attempts to display")

	runsStatsCmd.Flags().Duration("since", 24*time.Hour, "time window for stats (e.g. 24h, 72h, 168h)")

	runsCmd.AddCommand(runsListCmd)
	runsCmd.AddCommand(runsShowCmd)
	runsCmd.AddCommand(runsStatsCmd)
	rootCmd.AddCommand(runsCmd)
}

// attemptStats holds aggregate statistics computed from a set of attempts.
type attemptStats struct {
	Total           int
	Skipped         int
	Completed       int
	Partial         int
	Failed          int
	StorageFailed   int
	AvgCompleteness float64
	AvgDurSecs      float64
	ProviderData    map[model.Provider]int
}

// computeAttemptStats computes aggregate statistics. Skipped attempts are
// counted but excluded from the averages.
func computeAttemptStats(attempts []model.Attempt) attemptStats {
	s := attemptStats{Total: len(attempts), ProviderData: make(map[model.Provider]int)}

	var totalDur time.Duration
	var scored, completeness int

	for _, a := range attempts {
		if a.Skipped {
			s.Skipped++
			continue
		}
		switch a.Status {
		case model.StatusCompleted:
			s.Completed++
		case model.StatusPartial:
			s.Partial++
		case model.StatusFailed:
			s.Failed++
		}
		if !a.StorageSuccess {
			s.StorageFailed++
		}
		for p, o := range a.Providers {
			if o.HasData {
				s.ProviderData[p]++
			}
		}
		completeness += a.CompletenessScore
		totalDur += a.FinishedAt.Sub(a.StartedAt)
		scored++
	}

	if scored > 0 {
		s.AvgCompleteness = float64(completeness) / float64(scored)
		s.AvgDurSecs = totalDur.Seconds() / float64(scored)
	}
	return s
}

// formatAttemptsList writes a tabular list of attempts to out.
func formatAttemptsList(out io.Writer, attempts []model.Attempt) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tPERSON\tSTATUS\tSCORE\tCONFIDENCE\tSTORED\tSTARTED\tDURATION")
	_, _ = fmt.Fprintln(w, "--\t------\t------\t-----\t----------\t------\t-------\t--------")

	for _, a := range attempts {
		status := string(a.Status)
		if a.Skipped {
			status = "skipped"
		}

		person := a.PersonName
		if person == "" {
			person = a.PersonID
		}
		if len(person) > 30 {
			person = person[:27] + "..."
		}

		stored := "no"
		if a.StorageSuccess {
			stored = "yes"
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\n",
			truncateID(a.ID),
			person,
			status,
			a.CompletenessScore,
			a.Confidence,
			stored,
			a.StartedAt.Format("2006-01-02 15:04"),
			a.FinishedAt.Sub(a.StartedAt).Round(time.Second).String(),
		)
	}
	_ = w.Flush()
}

// formatAttemptStats writes aggregate stats to out.
func formatAttemptStats(out io.Writer, s attemptStats) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Total attempts:\t%d\n", s.Total)
	_, _ = fmt.Fprintf(w, "Skipped (fresh):\t%d\n", s.Skipped)
	_, _ = fmt.Fprintf(w, "Completed:\t%d\n", s.Completed)
	_, _ = fmt.Fprintf(w, "Partial:\t%d\n", s.Partial)
	_, _ = fmt.Fprintf(w, "Failed:\t%d\n", s.Failed)
	_, _ = fmt.Fprintf(w, "Storage failures:\t%d\n", s.StorageFailed)
	for _, p := range []model.Provider{model.ProviderApollo, model.ProviderLinkedIn} {
		_, _ = fmt.Fprintf(w, "  %s with data:\t%d\n", p, s.ProviderData[p])
	}
	if s.Total > s.Skipped {
		_, _ = fmt.Fprintf(w, "Avg completeness:\t%.1f%%\n", s.AvgCompleteness)
		_, _ = fmt.Fprintf(w, "Avg duration:\t%.1fs\n", s.AvgDurSecs)
	}
	_ = w.Flush()
}

// truncateID returns the first 8 characters of a UUID for compact display.
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
