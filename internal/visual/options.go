package visual

import (
	"fmt"

	"bugsort/internal/config"
	"bugsort/internal/services"
)

// FromConfig builds the configured clustering backend.
func FromConfig(cfg config.Clustering) (Clusterer, error) {
	metric := Metric(cfg.Metric)
	switch cfg.Backend {
	case "", "agglomerative":
		return Agglomerative{
			Linkage:           Linkage(cfg.Linkage),
			Metric:            metric,
			DistanceThreshold: cfg.DistanceThreshold,
			TargetClusters:    cfg.TargetClusters,
		}, nil
	case "ann":
		return ANN{
			Metric:            metric,
			DistanceThreshold: cfg.DistanceThreshold,
			Tables:            cfg.ANNTables,
			Bits:              cfg.ANNBits,
			Seed:              cfg.ANNSeed,
		}, nil
	default:
		return nil, services.Wrap(services.ErrInput, "visual", "backend", fmt.Sprintf("unknown clustering backend %q", cfg.Backend), nil)
	}
}
