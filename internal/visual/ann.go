package visual

import (
	"math/rand/v2"

	"bugsort/internal/services"
)

// ANN is an approximate clusterer for large batches. Items are bucketed by
// random-hyperplane signatures; pairs sharing a bucket and lying within
// DistanceThreshold are joined, and connected components become clusters.
// The same seed and inputs always yield the same partition.
type ANN struct {
	Metric            Metric
	DistanceThreshold float64
	Tables            int
	Bits              int
	Seed              int64
}

// Partition implements Clusterer.
func (a ANN) Partition(inputs []Input) ([][]string, error) {
	if a.DistanceThreshold <= 0 {
		return nil, services.Wrap(services.ErrInput, "visual", "ann", "ann backend requires a positive distance threshold", nil)
	}
	if a.Tables <= 0 || a.Bits <= 0 || a.Bits > 64 {
		return nil, services.Wrap(services.ErrInput, "visual", "ann", "tables must be positive and bits within 1..64", nil)
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

	dim := len(sorted[0].Vector)
	rng := rand.New(rand.NewPCG(uint64(a.Seed), uint64(a.Seed)^0x9e3779b97f4a7c15))
	planes := make([][]float64, a.Tables*a.Bits)
	for i := range planes {
		plane := make([]float64, dim)
		for j := range plane {
			plane[j] = rng.NormFloat64()
		}
		planes[i] = plane
	}

	uf := newUnionFind(n)
	for table := 0; table < a.Tables; table++ {
		buckets := make(map[uint64][]int)
		order := make([]uint64, 0)
		for idx, in := range sorted {
			sig := signature(in.Vector, planes[table*a.Bits:(table+1)*a.Bits])
			if _, ok := buckets[sig]; !ok {
				order = append(order, sig)
			}
			buckets[sig] = append(buckets[sig], idx)
		}
		for _, sig := range order {
			members := buckets[sig]
			for i := 0; i < len(members); i++ {
				for j := i + 1; j < len(members); j++ {
					a1, b1 := members[i], members[j]
					if uf.find(a1) == uf.find(b1) {
						continue
					}
					if metric.distance(sorted[a1].Vector, sorted[b1].Vector) <= a.DistanceThreshold {
						uf.union(a1, b1)
					}
				}
			}
		}
	}

	byRoot := make(map[int][]int)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		byRoot[root] = append(byRoot[root], i)
	}
	groups := make([][]int, 0, len(byRoot))
	for _, g := range byRoot {
		groups = append(groups, g)
	}
	return groupsToPartitions(sorted, groups), nil
}

func signature(vec []float64, planes [][]float64) uint64 {
	var sig uint64
	for bit, plane := range planes {
		var dot float64
		for i := range vec {
			dot += vec[i] * plane[i]
		}
		if dot >= 0 {
			sig |= 1 << uint(bit)
		}
	}
	return sig
}

type unionFind struct {
	parent []int
}

func newUnionFind(n int) *unionFind {
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	return &unionFind{parent: parent}
}

func (u *unionFind) find(x int) int {
	for u.parent[x] != x {
		u.parent[x] = u.parent[u.parent[x]]
		x = u.parent[x]
	}
	return x
}

// union keeps the smaller index as root.
func (u *unionFind) union(a, b int) {
	ra, rb := u.find(a), u.find(b)
	if ra == rb {
		return
	}
	if rb < ra {
		ra, rb = rb, ra
	}
	u.parent[rb] = ra
}
