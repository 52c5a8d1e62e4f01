package visual

import (
	"fmt"
	"math"
	"sort"

	"bugsort/internal/services"
)

// Input is one embedded item.
type Input struct {
	ItemID string
	Vector []float64
}

// Clusterer partitions embedded items. Every input appears in exactly one
// partition; members are returned sorted and partitions ordered by their
// smallest member. Results depend only on the set of inputs, never on their
// order.
type Clusterer interface {
	Partition(inputs []Input) ([][]string, error)
}

// Metric names a distance function.
type Metric string

const (
	Cosine    Metric = "cosine"
	Euclidean Metric = "euclidean"
)

func (m Metric) distance(a, b []float64) float64 {
	if m == Euclidean {
		var sum float64
		for i := range a {
			d := a[i] - b[i]
			sum += d * d
		}
		return math.Sqrt(sum)
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 1
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	return 1 - math.Max(-1, math.Min(1, sim))
}

// prepare validates inputs and returns them sorted by item ID.
func prepare(inputs []Input) ([]Input, error) {
	sorted := make([]Input, len(inputs))
	copy(sorted, inputs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })

	dim := -1
	for i, in := range sorted {
		if in.ItemID == "" {
			return nil, services.Wrap(services.ErrInput, "visual", "cluster", "input with empty item id", nil)
		}
		if i > 0 && sorted[i-1].ItemID == in.ItemID {
			return nil, services.Wrap(services.ErrInput, "visual", "cluster", fmt.Sprintf("duplicate item id %q", in.ItemID), nil)
		}
		if len(in.Vector) == 0 {
			return nil, services.Wrap(services.ErrInput, "visual", "cluster", fmt.Sprintf("item %q has an empty vector", in.ItemID), nil)
		}
		if dim == -1 {
			dim = len(in.Vector)
		} else if len(in.Vector) != dim {
			return nil, services.Wrap(services.ErrInput, "visual", "cluster",
				fmt.Sprintf("item %q has dimension %d, expected %d", in.ItemID, len(in.Vector), dim), nil)
		}
		for _, v := range in.Vector {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, services.Wrap(services.ErrInput, "visual", "cluster", fmt.Sprintf("item %q has a non-finite component", in.ItemID), nil)
			}
		}
	}
	return sorted, nil
}

// groupsToPartitions converts index groups into sorted ID partitions ordered
// by smallest member.
func groupsToPartitions(sorted []Input, groups [][]int) [][]string {
	out := make([][]string, 0, len(groups))
	for _, group := range groups {
		if len(group) == 0 {
			continue
		}
		sort.Ints(group)
		ids := make([]string, len(group))
		for i, idx := range group {
			ids[i] = sorted[idx].ItemID
		}
		out = append(out, ids)
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	return out
}
