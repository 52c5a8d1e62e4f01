package main

import (
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"bugsort/internal/pipeline"
	"bugsort/internal/preflight"
	"bugsort/internal/rules"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var skipPreflight bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "OCR, match, categorize and cluster every screenshot in the input directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			if !skipPreflight {
				if failed := preflight.Failed(preflight.RunAll(cmd.Context(), cfg)); len(failed) > 0 {
					return fmt.Errorf("preflight failed: %s (run `bugsort doctor` for details)", describeFailures(failed))
				}
			}

			j, err := ctx.ensureJournal()
			if err != nil {
				return err
			}
			p, err := pipeline.NewFromConfig(cfg, j, nil, logger)
			if err != nil {
				return err
			}

			metadata, err := pipeline.LoadMetadata(cfg.Paths.MetadataJSON)
			if err != nil {
				return err
			}
			sources, err := pipeline.Discover(cfg.Paths.InputDir, cfg.Pipeline.Extensions, metadata)
			if err != nil {
				return err
			}
			if len(sources) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No screenshots found in %s\n", cfg.Paths.InputDir)
				return nil
			}

			runCtx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			summary, err := p.Run(runCtx, sources)
			if err != nil {
				return fmt.Errorf("pipeline run: %w", err)
			}
			if jsonOutput {
				return writeJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			decorated := isTerminal(out)
			fmt.Fprintln(out, renderTable(
				[]string{"Outcome", "Items"},
				[][]string{
					{"Total", strconv.Itoa(summary.Total)},
					{"Succeeded", strconv.Itoa(summary.Succeeded)},
					{"Degraded", strconv.Itoa(summary.Degraded)},
					{"Failed", strconv.Itoa(summary.Failed)},
					{"Duplicates", strconv.Itoa(summary.Duplicates)},
					{"Resolved by screen", strconv.Itoa(summary.Resolved)},
					{"Visually clustered", strconv.Itoa(summary.Clustered)},
					{"Unclustered", strconv.Itoa(summary.Unclustered)},
					{"Clusters", strconv.Itoa(summary.Clusters)},
				},
				[]columnAlignment{alignLeft, alignRight},
				decorated,
			))
			fmt.Fprintln(out, renderCategoryTable(summary.Categories, decorated))
			fmt.Fprintf(out, "Run %s finished in %s\n", summary.RunID, summary.Duration.Round(time.Millisecond))
			fmt.Fprintf(out, "Report: %s\nClusters: %s\n", cfg.Paths.ReportsCSV, cfg.Paths.ClustersJSON)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the run summary as JSON")
	cmd.Flags().BoolVar(&skipPreflight, "skip-preflight", false, "Run without checking tesseract and directories first")
	return cmd
}

func newCategorizeCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "categorize",
		Short: "Re-run the category rules over the existing report",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			engine, err := rules.FromConfig(cfg.Rules)
			if err != nil {
				return err
			}
			store, err := ctx.openStore(nil, false)
			if err != nil {
				return err
			}

			summary, err := pipeline.Relabel(cmd.Context(), store, engine)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd, summary)
			}

			out := cmd.OutOrStdout()
			decorated := isTerminal(out)
			rows := make([][]string, 0, len(rules.All()))
			for _, category := range rules.All() {
				name := string(category)
				rows = append(rows, []string{
					name,
					strconv.Itoa(summary.Before[name]),
					strconv.Itoa(summary.After[name]),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Category", "Before", "After"},
				rows,
				[]columnAlignment{alignLeft, alignRight, alignRight},
				decorated,
			))
			fmt.Fprintf(out, "%d item(s) changed category\n", len(summary.Changed))
			if n := len(summary.Reviewed); n > 0 {
				fmt.Fprintf(out, "%d item(s) kept their reviewed category\n", n)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the change summary as JSON")
	return cmd
}

func renderCategoryTable(counts map[string]int, decorated bool) string {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	rows := make([][]string, 0, len(names))
	for _, name := range names {
		rows = append(rows, []string{name, strconv.Itoa(counts[name])})
	}
	return renderTable([]string{"Category", "Items"}, rows, []columnAlignment{alignLeft, alignRight}, decorated)
}

func describeFailures(results []preflight.Result) string {
	parts := make([]string, 0, len(results))
	for _, r := range results {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return strings.Join(parts, "; ")
}
