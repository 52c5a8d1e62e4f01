package visual

import (
	"math"

	"bugsort/internal/services"
)

// Linkage controls how the distance between two clusters is derived.
type Linkage string

const (
	Single   Linkage = "single"
	Complete Linkage = "complete"
	Average  Linkage = "average"
)

// Agglomerative is exact bottom-up hierarchical clustering. Merging stops
// when TargetClusters remain (if positive) or when the closest pair is
// further apart than DistanceThreshold.
type Agglomerative struct {
	Linkage           Linkage
	Metric            Metric
	DistanceThreshold float64
	TargetClusters    int
}

// Partition implements Clusterer.
func (a Agglomerative) Partition(inputs []Input) ([][]string, error) {
	if a.TargetClusters <= 0 && a.DistanceThreshold <= 0 {
		return nil, services.Wrap(services.ErrInput, "visual", "agglomerative", "distance threshold or target cluster count required", nil)
	}
	sorted, err := prepare(inputs)
	if err != nil {
		return nil, err
	}
	n := len(sorted)
	if n == 0 {
		return nil, nil
	}

	metric := a.Metric
	if metric == "" {
		metric = Cosine
	}
	dist := make([][]float64, n)
	for i := range dist {
		dist[i] = make([]float64, n)
	}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			d := metric.distance(sorted[i].Vector, sorted[j].Vector)
			dist[i][j] = d
			dist[j][i] = d
		}
	}

	active := make([]bool, n)
	size := make([]int, n)
	groups := make([][]int, n)
	for i := range active {
		active[i] = true
		size[i] = 1
		groups[i] = []int{i}
	}

	nn := make([]int, n)
	nnDist := make([]float64, n)
	nearest := func(i int) {
		nn[i], nnDist[i] = -1, math.Inf(1)
		for j := 0; j < n; j++ {
			if j == i || !active[j] {
				continue
			}
			if dist[i][j] < nnDist[i] {
				nn[i], nnDist[i] = j, dist[i][j]
			}
		}
	}
	for i := 0; i < n; i++ {
		nearest(i)
	}

	remaining := n
	for remaining > 1 {
		if a.TargetClusters > 0 && remaining <= a.TargetClusters {
			break
		}
		best := -1
		for i := 0; i < n; i++ {
			if active[i] && nn[i] >= 0 && (best == -1 || nnDist[i] < nnDist[best]) {
				best = i
			}
		}
		if best == -1 {
			break
		}
		if a.TargetClusters <= 0 && nnDist[best] > a.DistanceThreshold {
			break
		}

		keep, drop := best, nn[best]
		if drop < keep {
			keep, drop = drop, keep
		}
		for k := 0; k < n; k++ {
			if !active[k] || k == keep || k == drop {
				continue
			}
			d := a.linkage(dist[keep][k], dist[drop][k], size[keep], size[drop])
			dist[keep][k] = d
			dist[k][keep] = d
		}
		active[drop] = false
		size[keep] += size[drop]
		groups[keep] = append(groups[keep], groups[drop]...)
		groups[drop] = nil
		remaining--

		for k := 0; k < n; k++ {
			if !active[k] {
				continue
			}
			switch {
			case k == keep, nn[k] == keep, nn[k] == drop:
				nearest(k)
			case dist[k][keep] < nnDist[k] || (dist[k][keep] == nnDist[k] && keep < nn[k]):
				nn[k], nnDist[k] = keep, dist[k][keep]
			}
		}
	}

	return groupsToPartitions(sorted, groups), nil
}

// linkage applies the Lance-Williams update for the configured linkage.
func (a Agglomerative) linkage(dKeep, dDrop float64, nKeep, nDrop int) float64 {
	switch a.Linkage {
	case Single:
		return math.Min(dKeep, dDrop)
	case Complete:
		return math.Max(dKeep, dDrop)
	default:
		return (float64(nKeep)*dKeep + float64(nDrop)*dDrop) / float64(nKeep+nDrop)
	}
}
