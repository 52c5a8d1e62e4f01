package testsupport

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"bugsort/internal/config"
)

// ConfigOption adjusts a test configuration. base is the temp root that
// backs every path in cfg.
type ConfigOption func(t testing.TB, base string, cfg *config.Config)

// NewConfig returns defaults rooted in a fresh temp directory, with the input
// directory created. Embedding is off and review binds an ephemeral port.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	state := filepath.Join(base, "state")
	cfg := config.Default()
	cfg.Paths = config.Paths{
		InputDir:     filepath.Join(base, "input"),
		OutputDir:    filepath.Join(base, "arranged"),
		ReportsCSV:   filepath.Join(state, "reports.csv"),
		ClustersJSON: filepath.Join(state, "clusters.json"),
		MetadataJSON: cfg.Paths.MetadataJSON,
		JournalDB:    filepath.Join(state, "journal.db"),
		LogDir:       filepath.Join(base, "logs"),
	}
	cfg.Embedding.Enabled = false
	cfg.Review.Bind = "127.0.0.1:0"
	cfg.Pipeline.Workers = 2

	for _, opt := range opts {
		opt(t, base, &cfg)
	}
	if err := os.MkdirAll(cfg.Paths.InputDir, 0o755); err != nil {
		t.Fatalf("mkdir input dir: %v", err)
	}
	return &cfg
}

// WithEmbeddingURL turns embedding on against url.
func WithEmbeddingURL(url string) ConfigOption {
	return func(_ testing.TB, _ string, cfg *config.Config) {
		cfg.Embedding.Enabled = true
		cfg.Embedding.URL = url
	}
}

// WithStubbedBinaries puts no-op executables named names (tesseract when
// empty) at the front of PATH for the life of the test.
func WithStubbedBinaries(names ...string) ConfigOption {
	return func(t testing.TB, base string, _ *config.Config) {
		if len(names) == 0 {
			names = []string{"tesseract"}
		}
		bin := filepath.Join(base, "bin")
		for _, name := range names {
			WriteExecutable(t, filepath.Join(bin, name), "exit 0")
		}
		t.Setenv("PATH", strings.Join([]string{bin, os.Getenv("PATH")}, string(os.PathListSeparator)))
	}
}

// BaseDir returns the temp root behind a config from NewConfig.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.InputDir)
}
