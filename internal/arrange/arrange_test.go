package arrange

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"bugsort/internal/testsupport"
)

var imageExts = []string{"jpg", "jpeg", "png"}

func TestResolveMappingBeatsHeuristics(t *testing.T) {
	result := Resolve(Input{
		Clusters:     map[string][]string{"vc_1": {"x1"}},
		IDToFilename: map[string]string{"x1": "photo1.jpg"},
		Files:        []string{"photo1.jpg", "x1_extra.jpg"},
		Extensions:   imageExts,
	})
	if len(result.Matches) != 1 {
		t.Fatalf("expected one match, got %+v", result.Matches)
	}
	m := result.Matches[0]
	if m.Strategy != StrategyMapping || !reflect.DeepEqual(m.Files, []string{"photo1.jpg"}) {
		t.Fatalf("expected mapping to photo1.jpg only, got %+v", m)
	}
	if !reflect.DeepEqual(result.Unassigned, []string{"x1_extra.jpg"}) {
		t.Fatalf("unexpected unassigned %v", result.Unassigned)
	}
}

func TestResolveStrategyPriority(t *testing.T) {
	cases := []struct {
		name     string
		id       string
		files    []string
		mapping  map[string]string
		strategy Strategy
		want     []string
	}{
		{"stem beats prefix", "abc", []string{"abc.png", "abc_2.png", "xabc.png"}, nil, StrategyStem, []string{"abc.png"}},
		{"prefix returns all prefix hits", "abc", []string{"abc_1.png", "abc_2.jpg", "zabc.png"}, nil, StrategyPrefix, []string{"abc_1.png", "abc_2.jpg"}},
		{"contains", "abc", []string{"shot_abc.png", "other.png"}, nil, StrategyContains, []string{"shot_abc.png"}},
		{"case insensitive", "ABC", []string{"Abc.PNG"}, nil, StrategyStem, []string{"Abc.PNG"}},
		{"mapping to missing file falls through", "abc", []string{"abc.png"}, map[string]string{"abc": "gone.png"}, StrategyStem, []string{"abc.png"}},
		{"disallowed extension ignored", "abc", []string{"abc.txt", "abc_x.png"}, nil, StrategyPrefix, []string{"abc_x.png"}},
		{"mapped file with disallowed extension ignored", "abc", []string{"abc.gif", "abc.png"}, map[string]string{"abc": "abc.gif"}, StrategyStem, []string{"abc.png"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := Resolve(Input{
				Clusters:     map[string][]string{"c": {tc.id}},
				IDToFilename: tc.mapping,
				Files:        tc.files,
				Extensions:   imageExts,
			})
			if len(result.Matches) != 1 {
				t.Fatalf("expected a match, got %+v", result)
			}
			m := result.Matches[0]
			if m.Strategy != tc.strategy || !reflect.DeepEqual(m.Files, tc.want) {
				t.Fatalf("got %s %v, want %s %v", m.Strategy, m.Files, tc.strategy, tc.want)
			}
		})
	}
}

func TestResolveMissingAndUnassigned(t *testing.T) {
	result := Resolve(Input{
		Clusters:   map[string][]string{"vc_2": {"gone"}, "vc_1": {"a"}},
		Files:      []string{"a.png", "b.png", "notes.txt"},
		Extensions: imageExts,
	})
	if !reflect.DeepEqual(result.Missing, []Missing{{ClusterID: "vc_2", ID: "gone"}}) {
		t.Fatalf("unexpected missing %+v", result.Missing)
	}
	if !reflect.DeepEqual(result.Unassigned, []string{"b.png"}) {
		t.Fatalf("unexpected unassigned %v", result.Unassigned)
	}
	if !reflect.DeepEqual(result.Assigned(), []string{"a.png"}) {
		t.Fatalf("unexpected assigned %v", result.Assigned())
	}
}

func TestArrangeHundredClusters(t *testing.T) {
	base := t.TempDir()
	input := filepath.Join(base, "in")
	output := filepath.Join(base, "out")

	clusters := make(map[string][]string)
	for i := 0; i < 100; i++ {
		name := fmt.Sprintf("shot%03d.jpg", i)
		testsupport.WriteFile(t, filepath.Join(input, name), name)
		if i < 95 {
			clusters[fmt.Sprintf("vc_%d", i)] = []string{fmt.Sprintf("shot%03d", i)}
		} else {
			clusters[fmt.Sprintf("vc_%d", i)] = []string{fmt.Sprintf("absent%03d", i)}
		}
	}

	files, err := ScanDir(input, imageExts)
	if err != nil {
		t.Fatalf("ScanDir: %v", err)
	}
	result := Resolve(Input{Clusters: clusters, Files: files, Extensions: imageExts})
	plan := BuildPlan(result, input, output, "_unassigned")
	stats, err := Execute(context.Background(), plan, Options{Mode: ModeCopy})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if stats.Files != 100 || stats.Copies != 100 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	placed := 0
	for i := 0; i < 95; i++ {
		p := filepath.Join(output, fmt.Sprintf("vc_%d", i), fmt.Sprintf("shot%03d.jpg", i))
		if _, err := os.Stat(p); err == nil {
			placed++
		}
	}
	if placed != 95 {
		t.Fatalf("expected 95 files in cluster folders, got %d", placed)
	}
	unassigned, _ := os.ReadDir(filepath.Join(output, "_unassigned"))
	if len(unassigned) != 5 {
		t.Fatalf("expected 5 unassigned files, got %d", len(unassigned))
	}
	remaining, _ := os.ReadDir(input)
	if len(remaining) != 100 {
		t.Fatalf("copy must not delete sources, %d left", len(remaining))
	}
}

func TestExecuteMoveToSeveralClusters(t *testing.T) {
	base := t.TempDir()
	input := filepath.Join(base, "in")
	output := filepath.Join(base, "out")
	testsupport.WriteFile(t, filepath.Join(input, "abc_shared.png"), "img")

	result := Resolve(Input{
		Clusters:   map[string][]string{"vc_1": {"abc"}, "vc_2": {"shared"}},
		Files:      []string{"abc_shared.png"},
		Extensions: imageExts,
	})
	plan := BuildPlan(result, input, output, "_unassigned")
	stats, err := Execute(context.Background(), plan, Options{Mode: ModeMove})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if stats.Moved != 1 || stats.Copies != 1 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	for _, folder := range []string{"vc_1", "vc_2"} {
		if _, err := os.Stat(filepath.Join(output, folder, "abc_shared.png")); err != nil {
			t.Fatalf("missing in %s: %v", folder, err)
		}
	}
	if _, err := os.Stat(filepath.Join(input, "abc_shared.png")); !os.IsNotExist(err) {
		t.Fatalf("source should be removed after move, stat err %v", err)
	}
}

func TestExecuteDryRun(t *testing.T) {
	base := t.TempDir()
	input := filepath.Join(base, "in")
	output := filepath.Join(base, "out")
	testsupport.WriteFile(t, filepath.Join(input, "a.png"), "img")

	plan := BuildPlan(Result{Unassigned: []string{"a.png"}}, input, output, "_unassigned")
	stats, err := Execute(context.Background(), plan, Options{Mode: ModeMove, DryRun: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if stats.Files != 1 || stats.Moved != 0 {
		t.Fatalf("unexpected stats %+v", stats)
	}
	if _, err := os.Stat(output); !os.IsNotExist(err) {
		t.Fatalf("dry run created output: %v", err)
	}
}

func TestFolderNameStaysInsideOutput(t *testing.T) {
	cases := map[string]string{
		"vc_1":     "vc_1",
		"a/b":      "a-b",
		"..":       "unknown",
		"":         "unknown",
		"screen:1": "screen-1",
	}
	for in, want := range cases {
		if got := folderName(in); got != want {
			t.Errorf("folderName(%q) = %q, want %q", in, got, want)
		}
	}
}
