package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newClustersCommand(ctx *commandContext) *cobra.Command {
	clustersCmd := &cobra.Command{
		Use:   "clusters",
		Short: "Inspect, label and merge clusters",
	}

	clustersCmd.AddCommand(newClustersListCommand(ctx))
	clustersCmd.AddCommand(newClustersShowCommand(ctx))
	clustersCmd.AddCommand(newClustersLabelCommand(ctx))
	clustersCmd.AddCommand(newClustersMergeCommand(ctx))

	return clustersCmd
}

func newClustersListCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List clusters with their labels and sizes",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(nil, false)
			if err != nil {
				return err
			}
			clusters := store.Clusters()
			if jsonOutput {
				return writeJSON(cmd, clusters)
			}
			out := cmd.OutOrStdout()
			if len(clusters) == 0 {
				fmt.Fprintln(out, "No clusters")
				return nil
			}
			rows := make([][]string, 0, len(clusters))
			for _, c := range clusters {
				rows = append(rows, []string{c.ID, labelOrDash(c.Label), strconv.Itoa(c.Size)})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Cluster", "Label", "Size"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight},
				isTerminal(out),
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print clusters as JSON")
	return cmd
}

func newClustersShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <cluster-id>",
		Short: "Show the members of a cluster",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(nil, false)
			if err != nil {
				return err
			}
			detail, err := store.Cluster(args[0])
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, detail)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Cluster %s (%d items)", detail.ID, detail.Size)
			if detail.Label != "" {
				fmt.Fprintf(out, " labeled %q", detail.Label)
			}
			fmt.Fprintln(out)
			rows := make([][]string, 0, len(detail.Items))
			for _, item := range detail.Items {
				rows = append(rows, []string{
					item.ID,
					item.Filename,
					labelOrDash(item.PredictedScreenID),
					strconv.FormatFloat(item.ScreenConfidence, 'f', 2, 64),
					item.Category,
					truncate(item.OCRText, 48),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Filename", "Screen", "Conf", "Category", "OCR text"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight},
				isTerminal(out),
			))
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the cluster as JSON")
	return cmd
}

func newClustersLabelCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "label <cluster-id> <label>",
		Short: "Label a cluster with a category or a screen ID",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(nil, true)
			if err != nil {
				return err
			}
			if err := store.AssignLabel(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			detail, err := store.Cluster(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Labeled %s as %q (%d items)\n", detail.ID, detail.Label, detail.Size)
			return nil
		},
	}
}

func newClustersMergeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "merge <source> <destination>",
		Short: "Merge the source cluster into the destination cluster",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := ctx.openStore(nil, true)
			if err != nil {
				return err
			}
			if err := store.Merge(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			detail, err := store.Cluster(args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Merged %s into %s (%d items)\n", args[0], detail.ID, detail.Size)
			return nil
		},
	}
}

func labelOrDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func truncate(value string, limit int) string {
	runes := []rune(value)
	if len(runes) <= limit {
		return value
	}
	return string(runes[:limit-1]) + "…"
}
