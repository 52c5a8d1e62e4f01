package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"bugsort/internal/arrange"
	"bugsort/internal/report"
)

func newArrangeCommand(ctx *commandContext) *cobra.Command {
	var (
		move        bool
		dryRun      bool
		extensions  []string
		reportsPath string
		outputDir   string
		inputDir    string
		showMissing bool
	)

	cmd := &cobra.Command{
		Use:   "arrange [clusters.json]",
		Short: "Copy or move screenshots into one folder per cluster",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			clustersPath := cfg.Paths.ClustersJSON
			if len(args) == 1 {
				clustersPath = args[0]
			}
			if inputDir == "" {
				inputDir = cfg.Paths.InputDir
			}
			if outputDir == "" {
				outputDir = cfg.Paths.OutputDir
			}
			exts := cfg.Arrange.Extensions
			if len(extensions) > 0 {
				exts = extensions
			}

			clusters, err := report.ReadClustersFile(clustersPath)
			if err != nil {
				return err
			}
			if reportsPath == "" && !cmd.Flags().Changed("reports") {
				if _, statErr := os.Stat(cfg.Paths.ReportsCSV); statErr == nil {
					reportsPath = cfg.Paths.ReportsCSV
				}
			}
			var idToFilename map[string]string
			if reportsPath != "" {
				items, err := report.ReadCSVFile(reportsPath)
				if err != nil {
					return err
				}
				idToFilename = make(map[string]string, len(items))
				for _, item := range items {
					if item.Filename != "" {
						idToFilename[item.ID] = item.Filename
					}
				}
			}
			files, err := arrange.ScanDir(inputDir, exts)
			if err != nil {
				return err
			}

			result := arrange.Resolve(arrange.Input{
				Clusters:     clusters.Strings(),
				IDToFilename: idToFilename,
				Files:        files,
				Extensions:   exts,
			})
			plan := arrange.BuildPlan(result, inputDir, outputDir, cfg.Arrange.UnassignedDir)

			mode := arrange.ModeCopy
			if move {
				mode = arrange.ModeMove
			}
			stats, err := arrange.Execute(cmd.Context(), plan, arrange.Options{Mode: mode, DryRun: dryRun, Logger: logger})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			decorated := isTerminal(out)
			strategies := make(map[arrange.Strategy]int)
			for _, m := range result.Matches {
				strategies[m.Strategy]++
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Result", "Count"},
				[][]string{
					{"Files scanned", strconv.Itoa(len(files))},
					{"Assigned files", strconv.Itoa(len(result.Assigned()))},
					{"Unassigned files", strconv.Itoa(len(result.Unassigned))},
					{"Missing identifiers", strconv.Itoa(len(result.Missing))},
					{"Matched by mapping", strconv.Itoa(strategies[arrange.StrategyMapping])},
					{"Matched by stem", strconv.Itoa(strategies[arrange.StrategyStem])},
					{"Matched by prefix", strconv.Itoa(strategies[arrange.StrategyPrefix])},
					{"Matched by substring", strconv.Itoa(strategies[arrange.StrategyContains])},
				},
				[]columnAlignment{alignLeft, alignRight},
				decorated,
			))
			if showMissing && len(result.Missing) > 0 {
				rows := make([][]string, 0, len(result.Missing))
				for _, m := range result.Missing {
					rows = append(rows, []string{m.ClusterID, m.ID})
				}
				fmt.Fprintln(out, renderTable([]string{"Cluster", "Missing ID"}, rows, nil, decorated))
			}

			verb := strings.ToLower(mode.String())
			if dryRun {
				placements := 0
				for _, p := range plan.Placements {
					placements += len(p.Destinations)
				}
				fmt.Fprintf(out, "Dry run: would %s %d file(s) into %s (%d placement(s))\n", verb, stats.Files, outputDir, placements)
				return nil
			}
			fmt.Fprintf(out, "Arranged %d file(s) into %s (%d copied, %d moved)\n", stats.Files, outputDir, stats.Copies, stats.Moved)
			return nil
		},
	}

	cmd.Flags().BoolVar(&move, "move", false, "Move files instead of copying (a file in several clusters is copied to all but the last)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would happen without touching files")
	cmd.Flags().StringSliceVar(&extensions, "ext", nil, "Allowed file extensions (default from config)")
	cmd.Flags().StringVar(&reportsPath, "reports", "", "Report CSV used to map IDs to filenames (default paths.reports_csv when present)")
	cmd.Flags().StringVar(&outputDir, "output", "", "Destination root (default paths.output_dir)")
	cmd.Flags().StringVar(&inputDir, "input", "", "Directory holding the screenshots (default paths.input_dir)")
	cmd.Flags().BoolVar(&showMissing, "show-missing", false, "List identifiers that matched no file")
	return cmd
}
