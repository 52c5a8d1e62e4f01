package preflight

import (
	"context"
	"path/filepath"

	"bugsort/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
}

// RunAll executes the checks that apply to cfg. Optional features are only
// checked when enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result

	results = append(results, CheckDirectoryAccess("Input directory", cfg.Paths.InputDir))
	results = append(results, CheckDirectoryAccess("State directory", filepath.Dir(cfg.Paths.ReportsCSV)))

	for _, status := range CheckSystemDeps(cfg) {
		result := Result{Name: status.Name, Passed: !status.Blocking(), Detail: status.Detail}
		if status.Available && result.Detail == "" {
			result.Detail = status.Command
		}
		results = append(results, result)
	}

	if cfg.Matching.RegistryPath != "" {
		results = append(results, CheckRegistry(cfg.Matching.RegistryPath))
	}

	if cfg.Embedding.Enabled {
		results = append(results, CheckEmbedding(ctx, cfg.Embedding.URL, cfg.Embedding.APIKey))
	}

	return results
}

// Failed returns the results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed {
			out = append(out, r)
		}
	}
	return out
}
