package pipeline

import (
	"log/slog"

	"bugsort/internal/clusterstore"
	"bugsort/internal/config"
	"bugsort/internal/metrics"
	"bugsort/internal/rules"
	"bugsort/internal/screens"
	"bugsort/internal/services/embedding"
	"bugsort/internal/services/ocr"
)

// LoadMatcher builds the screen matcher from the matching config section.
func LoadMatcher(cfg *config.Config) (*screens.Matcher, error) {
	registry := screens.DefaultRegistry()
	if cfg.Matching.RegistryPath != "" {
		loaded, err := screens.LoadRegistry(cfg.Matching.RegistryPath)
		if err != nil {
			return nil, err
		}
		registry = loaded
	}
	return screens.NewMatcher(registry, screens.Policy{
		MinSimilarity:      cfg.Matching.MinSimilarity,
		OCRConfidenceFloor: cfg.Matching.OCRConfidenceFloor,
		FuzzyCeiling:       cfg.Matching.FuzzyCeiling,
	}), nil
}

// NewFromConfig wires the production collaborators: tesseract for OCR, the
// HTTP embedder when enabled, the configured registry and rule table.
func NewFromConfig(cfg *config.Config, recorder clusterstore.Recorder, m *metrics.Metrics, logger *slog.Logger) (*Pipeline, error) {
	extractor, err := ocr.NewFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	matcher, err := LoadMatcher(cfg)
	if err != nil {
		return nil, err
	}
	engine, err := rules.FromConfig(cfg.Rules)
	if err != nil {
		return nil, err
	}
	deps := Dependencies{
		OCR:     extractor,
		Matcher: matcher,
		Rules:   engine,
		Journal: recorder,
		Metrics: m,
		Logger:  logger,
	}
	if embedder := embedding.NewFromConfig(cfg); embedder != nil {
		deps.Embedder = embedder
	}
	return New(cfg, deps)
}
