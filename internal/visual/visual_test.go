package visual

import (
	"errors"
	"reflect"
	"testing"

	"bugsort/internal/config"
	"bugsort/internal/services"
)

func sampleInputs() []Input {
	return []Input{
		{ItemID: "e", Vector: []float64{0, 1, 0}},
		{ItemID: "a", Vector: []float64{1, 0, 0}},
		{ItemID: "c", Vector: []float64{0.95, 0.05, 0}},
		{ItemID: "b", Vector: []float64{0, 0.9, 0.1}},
		{ItemID: "d", Vector: []float64{0, 0, 1}},
	}
}

func TestAgglomerativePartition(t *testing.T) {
	tests := []struct {
		name string
		algo Agglomerative
		want [][]string
	}{
		{
			name: "threshold average",
			algo: Agglomerative{Linkage: Average, Metric: Cosine, DistanceThreshold: 0.2},
			want: [][]string{{"a", "c"}, {"b", "e"}, {"d"}},
		},
		{
			name: "threshold single euclidean",
			algo: Agglomerative{Linkage: Single, Metric: Euclidean, DistanceThreshold: 0.2},
			want: [][]string{{"a", "c"}, {"b", "e"}, {"d"}},
		},
		{
			name: "target count",
			algo: Agglomerative{Linkage: Complete, Metric: Cosine, TargetClusters: 3},
			want: [][]string{{"a", "c"}, {"b", "e"}, {"d"}},
		},
		{
			name: "tight threshold keeps singletons",
			algo: Agglomerative{Linkage: Average, Metric: Cosine, DistanceThreshold: 0.0001},
			want: [][]string{{"a"}, {"b"}, {"c"}, {"d"}, {"e"}},
		},
		{
			name: "target one merges everything",
			algo: Agglomerative{Linkage: Single, TargetClusters: 1},
			want: [][]string{{"a", "b", "c", "d", "e"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.algo.Partition(sampleInputs())
			if err != nil {
				t.Fatalf("Partition: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPartitionIndependentOfInputOrder(t *testing.T) {
	inputs := sampleInputs()
	reversed := make([]Input, len(inputs))
	for i := range inputs {
		reversed[len(inputs)-1-i] = inputs[i]
	}
	for _, c := range []Clusterer{
		Agglomerative{Linkage: Average, Metric: Cosine, DistanceThreshold: 0.2},
		ANN{Metric: Cosine, DistanceThreshold: 0.2, Tables: 4, Bits: 6, Seed: 7},
	} {
		a, err := c.Partition(inputs)
		if err != nil {
			t.Fatalf("Partition: %v", err)
		}
		b, err := c.Partition(reversed)
		if err != nil {
			t.Fatalf("Partition: %v", err)
		}
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("%T not order independent: %v vs %v", c, a, b)
		}
	}
}

func TestPartitionCoversEveryInputOnce(t *testing.T) {
	var inputs []Input
	for i := 0; i < 40; i++ {
		inputs = append(inputs, Input{
			ItemID: string(rune('A'+i%26)) + string(rune('a'+i/26)),
			Vector: []float64{float64(i % 5), float64(i % 3), 1},
		})
	}
	for _, c := range []Clusterer{
		Agglomerative{Linkage: Complete, Metric: Euclidean, DistanceThreshold: 1.5},
		ANN{Metric: Cosine, DistanceThreshold: 0.05, Tables: 6, Bits: 8, Seed: 1},
	} {
		parts, err := c.Partition(inputs)
		if err != nil {
			t.Fatalf("Partition: %v", err)
		}
		seen := make(map[string]int)
		for _, p := range parts {
			for _, id := range p {
				seen[id]++
			}
		}
		if len(seen) != len(inputs) {
			t.Fatalf("%T covered %d of %d items", c, len(seen), len(inputs))
		}
		for id, count := range seen {
			if count != 1 {
				t.Fatalf("%T placed %s in %d partitions", c, id, count)
			}
		}
	}
}

func TestANNJoinsSameDirectionVectors(t *testing.T) {
	inputs := []Input{
		{ItemID: "x1", Vector: []float64{1, 0, 0}},
		{ItemID: "x2", Vector: []float64{2, 0, 0}},
		{ItemID: "y1", Vector: []float64{0, 3, 0}},
		{ItemID: "y2", Vector: []float64{0, 1, 0}},
		{ItemID: "z", Vector: []float64{0, 0, 1}},
	}
	got, err := ANN{DistanceThreshold: 0.01, Tables: 2, Bits: 8, Seed: 42}.Partition(inputs)
	if err != nil {
		t.Fatalf("Partition: %v", err)
	}
	want := [][]string{{"x1", "x2"}, {"y1", "y2"}, {"z"}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestPartitionRejectsBadInput(t *testing.T) {
	algo := Agglomerative{DistanceThreshold: 0.5}
	tests := []struct {
		name   string
		c      Clusterer
		inputs []Input
	}{
		{"dimension mismatch", algo, []Input{{ItemID: "a", Vector: []float64{1}}, {ItemID: "b", Vector: []float64{1, 2}}}},
		{"duplicate id", algo, []Input{{ItemID: "a", Vector: []float64{1}}, {ItemID: "a", Vector: []float64{2}}}},
		{"empty id", algo, []Input{{Vector: []float64{1}}}},
		{"empty vector", algo, []Input{{ItemID: "a"}}},
		{"no stopping rule", Agglomerative{}, []Input{{ItemID: "a", Vector: []float64{1}}}},
		{"ann without threshold", ANN{Tables: 1, Bits: 1}, []Input{{ItemID: "a", Vector: []float64{1}}}},
		{"ann too many bits", ANN{DistanceThreshold: 0.1, Tables: 1, Bits: 65}, []Input{{ItemID: "a", Vector: []float64{1}}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.c.Partition(tt.inputs); !errors.Is(err, services.ErrInput) {
				t.Fatalf("expected input error, got %v", err)
			}
		})
	}
}

func TestPartitionEmpty(t *testing.T) {
	got, err := Agglomerative{DistanceThreshold: 0.5}.Partition(nil)
	if err != nil || len(got) != 0 {
		t.Fatalf("expected empty result, got %v, %v", got, err)
	}
}

func TestNamerReusesPriorIDs(t *testing.T) {
	prior := map[string][]string{
		"vc_1":        {"a", "c"},
		"vc_4":        {"b", "e"},
		"screen_home": {"z"},
	}
	algo := Agglomerative{Linkage: Average, Metric: Cosine, DistanceThreshold: 0.2}
	inputs := append(sampleInputs(), Input{ItemID: "f", Vector: []float64{0, 0.1, 0.9}})

	got, err := Assign(algo, NewNamer("vc_", prior), inputs)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	want := map[string][]string{
		"vc_1": {"a", "c"},
		"vc_4": {"b", "e"},
		"vc_5": {"d", "f"},
	}
	if !reflect.DeepEqual(got.Clusters, want) {
		t.Fatalf("clusters = %v, want %v", got.Clusters, want)
	}
	if got.ByItem["f"] != "vc_5" || len(got.ByItem) != len(inputs) {
		t.Fatalf("unexpected item map: %v", got.ByItem)
	}

	again, err := Assign(algo, NewNamer("vc_", got.Clusters), inputs)
	if err != nil {
		t.Fatalf("Assign: %v", err)
	}
	if !reflect.DeepEqual(again.Clusters, got.Clusters) {
		t.Fatalf("re-run renumbered clusters: %v vs %v", again.Clusters, got.Clusters)
	}
}

func TestNamerClaimsPriorIDOnce(t *testing.T) {
	n := NewNamer("vc_", map[string][]string{"vc_2": {"a", "b"}})
	if id := n.Name([]string{"a"}); id != "vc_2" {
		t.Fatalf("first = %q", id)
	}
	if id := n.Name([]string{"b"}); id != "vc_3" {
		t.Fatalf("second = %q", id)
	}
	if id := NewNamer("vc_", nil).Name([]string{"q"}); id != "vc_1" {
		t.Fatalf("fresh namer = %q", id)
	}
}

func TestFromConfig(t *testing.T) {
	c, err := FromConfig(config.Clustering{Backend: "ann", DistanceThreshold: 0.3, ANNTables: 2, ANNBits: 4, ANNSeed: 9})
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if ann, ok := c.(ANN); !ok || ann.Seed != 9 {
		t.Fatalf("unexpected clusterer %#v", c)
	}
	if _, err := FromConfig(config.Clustering{Backend: "kmeans"}); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}
