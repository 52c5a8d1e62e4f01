package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateClustering(); err != nil {
		return err
	}
	if err := c.validateEmbedding(); err != nil {
		return err
	}
	if err := c.validatePipeline(); err != nil {
		return err
	}
	if err := c.validateArrange(); err != nil {
		return err
	}
	if err := c.validateRules(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.ReportsCSV == "" {
		return errors.New("paths.reports_csv must be set")
	}
	if c.Paths.ClustersJSON == "" {
		return errors.New("paths.clusters_json must be set")
	}
	if c.Paths.ReportsCSV == c.Paths.ClustersJSON {
		return errors.New("paths.reports_csv and paths.clusters_json must differ")
	}
	return nil
}

func (c *Config) validateMatching() error {
	if err := ensureUnitInterval(map[string]float64{
		"matching.min_similarity":       c.Matching.MinSimilarity,
		"matching.ocr_confidence_floor": c.Matching.OCRConfidenceFloor,
		"matching.fuzzy_ceiling":        c.Matching.FuzzyCeiling,
	}); err != nil {
		return err
	}
	if c.Matching.FuzzyCeiling >= 1 {
		return errors.New("matching.fuzzy_ceiling must be below 1 so only exact matches reach full confidence")
	}
	if c.Matching.MinSimilarity > c.Matching.FuzzyCeiling {
		return errors.New("matching.min_similarity must not exceed matching.fuzzy_ceiling")
	}
	return nil
}

func (c *Config) validateClustering() error {
	switch c.Clustering.Backend {
	case "agglomerative", "ann":
	default:
		return fmt.Errorf("clustering.backend must be agglomerative or ann, got %q", c.Clustering.Backend)
	}
	switch c.Clustering.Linkage {
	case "single", "complete", "average":
	default:
		return fmt.Errorf("clustering.linkage must be single, complete, or average, got %q", c.Clustering.Linkage)
	}
	switch c.Clustering.Metric {
	case "cosine", "euclidean":
	default:
		return fmt.Errorf("clustering.metric must be cosine or euclidean, got %q", c.Clustering.Metric)
	}
	if c.Clustering.DistanceThreshold <= 0 && c.Clustering.TargetClusters <= 0 {
		return errors.New("clustering.distance_threshold or clustering.target_clusters must be positive")
	}
	if c.Clustering.TargetClusters < 0 {
		return errors.New("clustering.target_clusters must be >= 0")
	}
	if c.Clustering.ANNBits > 62 {
		return errors.New("clustering.ann_bits must be at most 62")
	}
	if c.Clustering.Prefix == "screen_" {
		return errors.New("clustering.prefix must not collide with the screen_ namespace")
	}
	return nil
}

func (c *Config) validateEmbedding() error {
	if !c.Embedding.Enabled {
		return nil
	}
	if c.Embedding.URL == "" {
		return errors.New("embedding.url must be set when embedding.enabled is true (or set BUGSORT_EMBEDDING_URL)")
	}
	if !strings.HasPrefix(c.Embedding.URL, "http://") && !strings.HasPrefix(c.Embedding.URL, "https://") {
		return errors.New("embedding.url must be an http(s) URL")
	}
	return nil
}

func (c *Config) validatePipeline() error {
	switch c.Pipeline.IDSource {
	case "content", "path":
	default:
		return fmt.Errorf("pipeline.id_source must be content or path, got %q", c.Pipeline.IDSource)
	}
	if c.Pipeline.Workers > 256 {
		return errors.New("pipeline.workers must be at most 256")
	}
	return nil
}

func (c *Config) validateArrange() error {
	if strings.ContainsAny(c.Arrange.UnassignedDir, `/\`) {
		return errors.New("arrange.unassigned_dir must be a single directory name")
	}
	return nil
}

func (c *Config) validateRules() error {
	seen := make(map[string]struct{}, len(c.Rules.Custom))
	for i, rule := range c.Rules.Custom {
		if rule.Name == "" {
			return fmt.Errorf("rules.custom[%d].name must be set", i)
		}
		if _, ok := seen[rule.Name]; ok {
			return fmt.Errorf("rules.custom[%d].name %q is duplicated", i, rule.Name)
		}
		seen[rule.Name] = struct{}{}
		if rule.Category == "" {
			return fmt.Errorf("rules.custom[%d].category must be set", i)
		}
		if rule.Expression == "" {
			return fmt.Errorf("rules.custom[%d].expression must be set", i)
		}
	}
	return nil
}

func ensureUnitInterval(values map[string]float64) error {
	for key, value := range values {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", key)
		}
	}
	return nil
}
