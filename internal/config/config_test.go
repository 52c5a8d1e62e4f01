package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"bugsort/internal/config"
)

func TestLoadDefaultConfigExpandsPaths(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	cfg, resolved, exists, err := config.Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if resolved == "" {
		t.Fatal("expected resolved path")
	}
	if exists {
		t.Fatal("expected config file to be absent in temp HOME")
	}

	wantReports := filepath.Join(tempHome, ".local", "share", "bugsort", "reports.csv")
	if cfg.Paths.ReportsCSV != wantReports {
		t.Fatalf("unexpected reports path: got %q want %q", cfg.Paths.ReportsCSV, wantReports)
	}
	if cfg.Paths.InputDir != filepath.Join(tempHome, "bugsort", "screenshots") {
		t.Fatalf("unexpected input dir: %q", cfg.Paths.InputDir)
	}
	if cfg.Matching.MinSimilarity != 0.80 {
		t.Fatalf("unexpected min similarity: %v", cfg.Matching.MinSimilarity)
	}
	if cfg.Clustering.Prefix != "vc_" {
		t.Fatalf("unexpected cluster prefix: %q", cfg.Clustering.Prefix)
	}
	if got := strings.Join(cfg.Arrange.Extensions, ","); got != "jpg,jpeg,png" {
		t.Fatalf("unexpected arrange extensions: %q", got)
	}
	if cfg.Embedding.Enabled {
		t.Fatal("expected embedding disabled by default")
	}
}

func TestLoadCustomConfigOverrides(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	payload := map[string]any{
		"paths": map[string]any{
			"reports_csv":   "~/out/reports.csv",
			"clusters_json": "~/out/clusters.json",
		},
		"clustering": map[string]any{
			"backend": "ANN",
			"linkage": "Single",
		},
		"pipeline": map[string]any{
			"extensions": []string{".PNG", "png", " webp "},
		},
		"rules": map[string]any{
			"custom": []map[string]any{
				{"name": "checkout", "category": " Functional_Errors ", "expression": "comment.contains('checkout')"},
			},
		},
		"logging": map[string]any{
			"format": "JSON",
		},
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, resolved, exists, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists || resolved != configPath {
		t.Fatalf("expected explicit config to be used, got %q exists=%v", resolved, exists)
	}
	if cfg.Paths.ReportsCSV != filepath.Join(tempHome, "out", "reports.csv") {
		t.Fatalf("unexpected reports path: %q", cfg.Paths.ReportsCSV)
	}
	if cfg.Clustering.Backend != "ann" || cfg.Clustering.Linkage != "single" {
		t.Fatalf("expected lowercased clustering options, got %q/%q", cfg.Clustering.Backend, cfg.Clustering.Linkage)
	}
	if got := strings.Join(cfg.Pipeline.Extensions, ","); got != "png,webp" {
		t.Fatalf("unexpected pipeline extensions: %q", got)
	}
	if len(cfg.Rules.Custom) != 1 || cfg.Rules.Custom[0].Category != "functional_errors" {
		t.Fatalf("unexpected custom rules: %+v", cfg.Rules.Custom)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("expected json log format, got %q", cfg.Logging.Format)
	}
}

func TestLoadEmbeddingEnvFallback(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("BUGSORT_EMBEDDING_URL", "http://127.0.0.1:9000/embed")
	t.Setenv("BUGSORT_EMBEDDING_API_KEY", " secret ")

	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[embedding]\nenabled = true\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Embedding.URL != "http://127.0.0.1:9000/embed" {
		t.Fatalf("unexpected embedding url: %q", cfg.Embedding.URL)
	}
	if cfg.Embedding.APIKey != "secret" {
		t.Fatalf("unexpected api key: %q", cfg.Embedding.APIKey)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{
			name:   "similarity out of range",
			mutate: func(c *config.Config) { c.Matching.MinSimilarity = 1.5 },
			want:   "matching.min_similarity",
		},
		{
			name:   "fuzzy ceiling reaches exact",
			mutate: func(c *config.Config) { c.Matching.FuzzyCeiling = 1 },
			want:   "matching.fuzzy_ceiling",
		},
		{
			name:   "unknown backend",
			mutate: func(c *config.Config) { c.Clustering.Backend = "kmeans" },
			want:   "clustering.backend",
		},
		{
			name:   "no stopping criterion",
			mutate: func(c *config.Config) { c.Clustering.DistanceThreshold = 0 },
			want:   "clustering.distance_threshold",
		},
		{
			name:   "embedding without url",
			mutate: func(c *config.Config) { c.Embedding.Enabled = true },
			want:   "embedding.url",
		},
		{
			name:   "bad id source",
			mutate: func(c *config.Config) { c.Pipeline.IDSource = "random" },
			want:   "pipeline.id_source",
		},
		{
			name:   "nested unassigned dir",
			mutate: func(c *config.Config) { c.Arrange.UnassignedDir = "a/b" },
			want:   "arrange.unassigned_dir",
		},
		{
			name: "custom rule without expression",
			mutate: func(c *config.Config) {
				c.Rules.Custom = []config.CustomRule{{Name: "x", Category: "functional_errors"}}
			},
			want: "expression",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.Paths.ReportsCSV = "/tmp/reports.csv"
			cfg.Paths.ClustersJSON = "/tmp/clusters.json"
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("expected validation error containing %q", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestEnsureDirectoriesCreatesParents(t *testing.T) {
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.OutputDir = filepath.Join(base, "out")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Paths.ReportsCSV = filepath.Join(base, "state", "reports.csv")
	cfg.Paths.ClustersJSON = filepath.Join(base, "state", "clusters.json")
	cfg.Paths.JournalDB = filepath.Join(base, "db", "journal.db")

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	for _, dir := range []string{"out", "logs", "state", "db"} {
		if info, err := os.Stat(filepath.Join(base, dir)); err != nil || !info.IsDir() {
			t.Fatalf("expected directory %s to exist: %v", dir, err)
		}
	}
}

func TestCreateSampleRoundTrips(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample: %v", err)
	}
	if _, _, exists, err := config.Load(path); err != nil || !exists {
		t.Fatalf("sample config should load cleanly: exists=%v err=%v", exists, err)
	}
}
