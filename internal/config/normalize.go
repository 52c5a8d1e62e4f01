package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeMatching(); err != nil {
		return err
	}
	c.normalizeClustering()
	c.normalizeOCR()
	c.normalizeEmbedding()
	c.normalizePipeline()
	c.normalizeArrange()
	c.normalizeReview()
	c.normalizeRules()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	fields := []struct {
		key      string
		value    *string
		fallback string
	}{
		{"paths.input_dir", &c.Paths.InputDir, defaultInputDir},
		{"paths.output_dir", &c.Paths.OutputDir, defaultOutputDir},
		{"paths.reports_csv", &c.Paths.ReportsCSV, defaultReportsCSV},
		{"paths.clusters_json", &c.Paths.ClustersJSON, defaultClustersJSON},
		{"paths.metadata_json", &c.Paths.MetadataJSON, ""},
		{"paths.journal_db", &c.Paths.JournalDB, ""},
		{"paths.log_dir", &c.Paths.LogDir, defaultLogDir},
	}
	for _, field := range fields {
		if strings.TrimSpace(*field.value) == "" {
			*field.value = field.fallback
		}
		expanded, err := ExpandPath(strings.TrimSpace(*field.value))
		if err != nil {
			return fmt.Errorf("%s: %w", field.key, err)
		}
		*field.value = expanded
	}
	return nil
}

func (c *Config) normalizeMatching() error {
	c.Matching.RegistryPath = strings.TrimSpace(c.Matching.RegistryPath)
	if c.Matching.RegistryPath != "" {
		expanded, err := ExpandPath(c.Matching.RegistryPath)
		if err != nil {
			return fmt.Errorf("matching.registry_path: %w", err)
		}
		c.Matching.RegistryPath = expanded
	}
	if c.Matching.FuzzyCeiling == 0 {
		c.Matching.FuzzyCeiling = defaultFuzzyCeiling
	}
	return nil
}

func (c *Config) normalizeClustering() {
	c.Clustering.Backend = strings.ToLower(strings.TrimSpace(c.Clustering.Backend))
	if c.Clustering.Backend == "" {
		c.Clustering.Backend = defaultClusterBackend
	}
	c.Clustering.Linkage = strings.ToLower(strings.TrimSpace(c.Clustering.Linkage))
	if c.Clustering.Linkage == "" {
		c.Clustering.Linkage = defaultClusterLinkage
	}
	c.Clustering.Metric = strings.ToLower(strings.TrimSpace(c.Clustering.Metric))
	if c.Clustering.Metric == "" {
		c.Clustering.Metric = defaultClusterMetric
	}
	if c.Clustering.ANNTables <= 0 {
		c.Clustering.ANNTables = defaultANNTables
	}
	if c.Clustering.ANNBits <= 0 {
		c.Clustering.ANNBits = defaultANNBits
	}
	c.Clustering.Prefix = strings.TrimSpace(c.Clustering.Prefix)
	if c.Clustering.Prefix == "" {
		c.Clustering.Prefix = defaultClusterPrefix
	}
}

func (c *Config) normalizeOCR() {
	c.OCR.Binary = strings.TrimSpace(c.OCR.Binary)
	if c.OCR.Binary == "" {
		c.OCR.Binary = defaultOCRBinary
	}
	c.OCR.Languages = strings.TrimSpace(c.OCR.Languages)
	if c.OCR.Languages == "" {
		c.OCR.Languages = defaultOCRLanguages
	}
	if c.OCR.TimeoutSeconds <= 0 {
		c.OCR.TimeoutSeconds = defaultOCRTimeout
	}
}

func (c *Config) normalizeEmbedding() {
	c.Embedding.URL = strings.TrimSpace(c.Embedding.URL)
	if c.Embedding.URL == "" {
		if value, ok := os.LookupEnv("BUGSORT_EMBEDDING_URL"); ok {
			c.Embedding.URL = strings.TrimSpace(value)
		}
	}
	c.Embedding.APIKey = strings.TrimSpace(c.Embedding.APIKey)
	if c.Embedding.APIKey == "" {
		if value, ok := os.LookupEnv("BUGSORT_EMBEDDING_API_KEY"); ok {
			c.Embedding.APIKey = strings.TrimSpace(value)
		}
	}
	c.Embedding.Model = strings.TrimSpace(c.Embedding.Model)
	if c.Embedding.Model == "" {
		c.Embedding.Model = defaultEmbeddingModel
	}
	if c.Embedding.TimeoutSeconds <= 0 {
		c.Embedding.TimeoutSeconds = defaultEmbeddingTimeout
	}
	if c.Embedding.CacheMinutes < 0 {
		c.Embedding.CacheMinutes = 0
	}
}

func (c *Config) normalizePipeline() {
	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = defaultWorkers
	}
	c.Pipeline.IDSource = strings.ToLower(strings.TrimSpace(c.Pipeline.IDSource))
	if c.Pipeline.IDSource == "" {
		c.Pipeline.IDSource = defaultIDSource
	}
	c.Pipeline.Extensions = normalizeExtensions(c.Pipeline.Extensions)
}

func (c *Config) normalizeArrange() {
	c.Arrange.UnassignedDir = strings.TrimSpace(c.Arrange.UnassignedDir)
	if c.Arrange.UnassignedDir == "" {
		c.Arrange.UnassignedDir = defaultUnassignedDir
	}
	c.Arrange.Extensions = normalizeExtensions(c.Arrange.Extensions)
}

func (c *Config) normalizeReview() {
	c.Review.Bind = strings.TrimSpace(c.Review.Bind)
	if c.Review.Bind == "" {
		c.Review.Bind = defaultReviewBind
	}
	if c.Review.SampleSize <= 0 {
		c.Review.SampleSize = defaultReviewSampleSize
	}
	c.Review.Token = strings.TrimSpace(c.Review.Token)
	if c.Review.Token == "" {
		if value, ok := os.LookupEnv("BUGSORT_REVIEW_TOKEN"); ok {
			c.Review.Token = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeRules() {
	for i := range c.Rules.Custom {
		rule := &c.Rules.Custom[i]
		rule.Name = strings.TrimSpace(rule.Name)
		rule.Category = strings.ToLower(strings.TrimSpace(rule.Category))
		rule.Expression = strings.TrimSpace(rule.Expression)
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// normalizeExtensions lowercases, strips dots, and de-duplicates extensions.
func normalizeExtensions(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, value := range values {
		ext := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(value), "."))
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		out = append(out, ext)
	}
	if len(out) == 0 {
		return append([]string(nil), defaultExtensions...)
	}
	return out
}
