package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"bugsort/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check tesseract, the embedding service and directory access",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			colorize := isTerminal(out)

			fmt.Fprintf(out, "Config: %s\n", displayPath(ctx.configPath))
			results := preflight.RunAll(cmd.Context(), cfg)
			for _, r := range results {
				kind := statusOK
				if !r.Passed {
					kind = statusError
				}
				fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
			}
			if !cfg.Embedding.Enabled {
				r := preflight.CheckEmbeddingFromConfig(cmd.Context(), cfg)
				fmt.Fprintln(out, renderStatusLine(r.Name, statusWarn, r.Detail, colorize))
			}

			if failed := preflight.Failed(results); len(failed) > 0 {
				return errors.New("one or more checks failed")
			}
			return nil
		},
	}
}

func displayPath(path string) string {
	if path == "" {
		return "(defaults)"
	}
	return path
}
