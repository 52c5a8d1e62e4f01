package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains input, output, and state file locations.
type Paths struct {
	InputDir     string `toml:"input_dir"`
	OutputDir    string `toml:"output_dir"`
	ReportsCSV   string `toml:"reports_csv"`
	ClustersJSON string `toml:"clusters_json"`
	MetadataJSON string `toml:"metadata_json"`
	JournalDB    string `toml:"journal_db"`
	LogDir       string `toml:"log_dir"`
}

// Matching contains ScreenMatcher thresholds and the screen registry location.
type Matching struct {
	MinSimilarity      float64 `toml:"min_similarity"`
	OCRConfidenceFloor float64 `toml:"ocr_confidence_floor"`
	FuzzyCeiling       float64 `toml:"fuzzy_ceiling"`
	// RegistryPath points at a TOML screen registry. Empty uses the built-in registry.
	RegistryPath string `toml:"registry_path"`
}

// Clustering contains VisualClusterer settings.
type Clustering struct {
	Backend           string  `toml:"backend"` // agglomerative | ann
	Linkage           string  `toml:"linkage"` // single | complete | average
	Metric            string  `toml:"metric"`  // cosine | euclidean
	DistanceThreshold float64 `toml:"distance_threshold"`
	TargetClusters    int     `toml:"target_clusters"`
	ANNTables         int     `toml:"ann_tables"`
	ANNBits           int     `toml:"ann_bits"`
	ANNSeed           int64   `toml:"ann_seed"`
	Prefix            string  `toml:"prefix"`
}

// OCR contains configuration for the tesseract text extractor.
type OCR struct {
	Binary         string `toml:"binary"`
	Languages      string `toml:"languages"`
	PSM            int    `toml:"psm"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Embedding contains configuration for the image embedding service.
type Embedding struct {
	Enabled        bool   `toml:"enabled"`
	URL            string `toml:"url"`
	APIKey         string `toml:"api_key"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	CacheMinutes   int    `toml:"cache_minutes"`
}

// Pipeline contains batch processing settings.
type Pipeline struct {
	Workers    int      `toml:"workers"`
	IDSource   string   `toml:"id_source"` // content | path
	Extensions []string `toml:"extensions"`
}

// Arrange contains settings for sorting screenshots into cluster folders.
type Arrange struct {
	UnassignedDir string   `toml:"unassigned_dir"`
	Extensions    []string `toml:"extensions"`
}

// Review contains settings for the HTTP review interface.
type Review struct {
	Bind       string `toml:"bind"`
	SampleSize int    `toml:"sample_size"`
	// Token, when set, is required as a bearer token on mutating requests.
	Token string `toml:"token"`
}

// CustomRule is a deployment-time category rule written as a CEL expression.
type CustomRule struct {
	Name       string `toml:"name"`
	Category   string `toml:"category"`
	Expression string `toml:"expression"`
}

// Rules contains additions to the built-in category rule table.
type Rules struct {
	Custom []CustomRule `toml:"custom"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for bugsort.
//
// Configuration sections by subsystem:
//   - Paths: input screenshots, report artifacts, journal and logs
//   - Matching: screen registry and ScreenMatcher thresholds
//   - Clustering: visual clustering backend and thresholds
//   - OCR: tesseract invocation
//   - Embedding: image embedding endpoint and cache
//   - Pipeline: worker count, identifier source, accepted extensions
//   - Arrange: cluster folder layout
//   - Review: HTTP review interface
//   - Rules: custom category rules
//   - Logging: log format and level
type Config struct {
	Paths      Paths      `toml:"paths"`
	Matching   Matching   `toml:"matching"`
	Clustering Clustering `toml:"clustering"`
	OCR        OCR        `toml:"ocr"`
	Embedding  Embedding  `toml:"embedding"`
	Pipeline   Pipeline   `toml:"pipeline"`
	Arrange    Arrange    `toml:"arrange"`
	Review     Review     `toml:"review"`
	Rules      Rules      `toml:"rules"`
	Logging    Logging    `toml:"logging"`
}

// DefaultConfigPath is ~/.config/bugsort/config.toml, expanded.
func DefaultConfigPath() (string, error) {
	return ExpandPath("~/.config/bugsort/config.toml")
}

// Load reads the config at path, or searches the default locations when path
// is empty. It returns the config, the file it came from, and whether that
// file existed. A missing file is not an error: defaults apply. A ./.env file
// is loaded before normalizing so env fallbacks can read it.
func Load(path string) (*Config, string, bool, error) {
	resolved, exists, err := locate(path)
	if err != nil {
		return nil, "", false, err
	}

	cfg := Default()
	if exists {
		if err := decodeFile(resolved, &cfg); err != nil {
			return nil, "", false, err
		}
	}
	if err := loadEnvFile(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolved, exists, nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("open config: %w", err)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// loadEnvFile reads ./.env when present. Variables already set in the
// environment win over the file.
func loadEnvFile() error {
	err := godotenv.Load()
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

// locate resolves an explicit path, or tries the user config and then
// ./bugsort.toml. With nothing found it returns the user config path.
func locate(path string) (string, bool, error) {
	var candidates []string
	if path != "" {
		expanded, err := ExpandPath(path)
		if err != nil {
			return "", false, err
		}
		candidates = []string{expanded}
	} else {
		user, err := DefaultConfigPath()
		if err != nil {
			return "", false, err
		}
		local, err := filepath.Abs("bugsort.toml")
		if err != nil {
			return "", false, err
		}
		candidates = []string{user, local}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, true, nil
		case err != nil && !errors.Is(err, fs.ErrNotExist):
			return "", false, fmt.Errorf("stat config: %w", err)
		}
	}
	return candidates[0], false, nil
}

// EnsureDirectories creates the output, log and state directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.OutputDir,
		c.Paths.LogDir,
		filepath.Dir(c.Paths.ReportsCSV),
		filepath.Dir(c.Paths.ClustersJSON),
	}
	if c.Paths.JournalDB != "" {
		dirs = append(dirs, filepath.Dir(c.Paths.JournalDB))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// OCRBinary returns the OCR executable name.
func (c *Config) OCRBinary() string {
	if strings.TrimSpace(c.OCR.Binary) == "" {
		return defaultOCRBinary
	}
	return c.OCR.Binary
}

// ExpandPath resolves a leading ~ and returns an absolute, cleaned path.
// Empty input stays empty.
func ExpandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") || strings.HasPrefix(p, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		p = filepath.Join(home, strings.TrimLeft(p[1:], `/\`))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", p, err)
	}
	return abs, nil
}

// CreateSample writes the commented sample configuration to path.
func CreateSample(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
