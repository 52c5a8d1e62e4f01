package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"bugsort/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		op         string
		clusterID  string
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List journaled runs, labels and merges",
		RunE: func(cmd *cobra.Command, args []string) error {
			j, err := ctx.ensureJournal()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if j == nil {
				fmt.Fprintln(out, "Journal disabled (paths.journal_db is empty)")
				return nil
			}
			entries, err := j.List(cmd.Context(), journal.Filter{Op: op, ClusterID: clusterID, Limit: limit})
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No journal entries")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				rows = append(rows, []string{
					strconv.FormatInt(e.ID, 10),
					e.CreatedAt.Local().Format(time.DateTime),
					e.Op,
					labelOrDash(e.ClusterID),
					labelOrDash(e.Target),
					labelOrDash(e.Label),
					strconv.Itoa(e.Members),
					labelOrDash(e.Detail),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"#", "When", "Op", "Cluster", "Target", "Label", "Items", "Detail"},
				rows,
				[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
				isTerminal(out),
			))
			return nil
		},
	}

	cmd.Flags().StringVar(&op, "op", "", "Only show one operation (run, label, merge, relabel)")
	cmd.Flags().StringVar(&clusterID, "cluster", "", "Only show entries for a cluster")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "Maximum entries to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print entries as JSON")
	return cmd
}
