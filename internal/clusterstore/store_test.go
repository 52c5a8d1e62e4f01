package clusterstore_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"bugsort/internal/clusterstore"
	"bugsort/internal/journal"
	"bugsort/internal/report"
	"bugsort/internal/services"
	"bugsort/internal/testsupport"
)

func sampleItems() []report.Item {
	return []report.Item{
		{ID: "a", Filename: "a.png", OCRText: "cart"},
		{ID: "b", Filename: "b.png", OCRText: "cart total"},
		{ID: "c", Filename: "c.png", OCRText: "settings"},
		{ID: "d", Filename: "d.png", PredictedScreenID: "home", ScreenConfidence: 1},
	}
}

func members(ids ...string) []report.MemberID {
	out := make([]report.MemberID, len(ids))
	for i, id := range ids {
		out[i] = report.StringMember(id)
	}
	return out
}

func sampleClusters() report.ClusterMap {
	return report.ClusterMap{
		"vc_1": members("a", "b"),
		"vc_2": members("c"),
	}
}

func newStore(t *testing.T, opts ...clusterstore.Option) *clusterstore.Store {
	t.Helper()
	store, err := clusterstore.New(sampleItems(), sampleClusters(), opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return store
}

func statePaths(t *testing.T) clusterstore.Paths {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "state")
	return clusterstore.Paths{
		ReportsCSV:   filepath.Join(dir, "reports.csv"),
		ClustersJSON: filepath.Join(dir, "clusters.json"),
	}
}

func TestNewValidatesInvariants(t *testing.T) {
	cases := []struct {
		name     string
		items    []report.Item
		clusters report.ClusterMap
		want     error
	}{
		{
			name:     "unknown member",
			items:    sampleItems(),
			clusters: report.ClusterMap{"vc_1": members("a", "zzz")},
			want:     services.ErrConsistency,
		},
		{
			name:     "member in two clusters",
			items:    sampleItems(),
			clusters: report.ClusterMap{"vc_1": members("a"), "vc_2": members("a")},
			want:     services.ErrConsistency,
		},
		{
			name:     "duplicate item",
			items:    []report.Item{{ID: "a"}, {ID: "a"}},
			clusters: report.ClusterMap{},
			want:     services.ErrInput,
		},
		{
			name:     "empty item id",
			items:    []report.Item{{ID: ""}},
			clusters: report.ClusterMap{},
			want:     services.ErrInput,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := clusterstore.New(tc.items, tc.clusters)
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestNewSetsItemClusterIDs(t *testing.T) {
	store := newStore(t)
	item, err := store.Item("b")
	if err != nil {
		t.Fatalf("Item: %v", err)
	}
	if item.ClusterID != "vc_1" {
		t.Fatalf("expected vc_1, got %q", item.ClusterID)
	}
	item, _ = store.Item("d")
	if item.ClusterID != "" {
		t.Fatalf("unclustered item should have empty cluster id, got %q", item.ClusterID)
	}
}

func TestReadAPI(t *testing.T) {
	store := newStore(t)

	summaries := store.Clusters()
	if len(summaries) != 2 || summaries[0].ID != "vc_1" || summaries[0].Size != 2 {
		t.Fatalf("unexpected summaries %+v", summaries)
	}

	detail, err := store.Cluster("vc_1")
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if len(detail.Items) != 2 || detail.Items[0].ID != "a" {
		t.Fatalf("unexpected detail %+v", detail)
	}

	if _, err := store.Cluster("nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if _, err := store.Item("nope"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	snap := store.Snapshot()
	snap["vc_1"] = nil
	if got := store.Snapshot()["vc_1"]; len(got) != 2 {
		t.Fatalf("snapshot must be a copy, store now has %v", got)
	}
}

func TestAssignLabelCategory(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if err := store.AssignLabel(ctx, "vc_1", " Crash_Stability "); err != nil {
		t.Fatalf("AssignLabel: %v", err)
	}
	for _, id := range []string{"a", "b"} {
		item, _ := store.Item(id)
		if item.Category != "crash_stability" {
			t.Fatalf("item %s category = %q", id, item.Category)
		}
		if item.PredictedScreenID != "" {
			t.Fatalf("category label must not set a screen, got %q", item.PredictedScreenID)
		}
	}
	if got := store.Labels()["vc_1"]; got != "crash_stability" {
		t.Fatalf("label = %q", got)
	}
}

func TestAssignLabelScreen(t *testing.T) {
	validator := func(id string) bool { return id == "checkout" }
	store := newStore(t, clusterstore.WithScreenValidator(validator))
	ctx := context.Background()

	if err := store.AssignLabel(ctx, "vc_1", "checkout"); err != nil {
		t.Fatalf("AssignLabel: %v", err)
	}
	item, _ := store.Item("a")
	if item.PredictedScreenID != "checkout" || item.ScreenConfidence != 1.0 {
		t.Fatalf("expected resolved to checkout, got %+v", item)
	}
	if !item.Resolved() {
		t.Fatal("item should report resolved")
	}

	err := store.AssignLabel(ctx, "vc_2", "not-a-screen")
	if !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
	item, _ = store.Item("c")
	if item.PredictedScreenID != "" {
		t.Fatalf("rejected label must not change items, got %+v", item)
	}
}

func TestAssignLabelErrors(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if err := store.AssignLabel(ctx, "vc_9", "crash_stability"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	if err := store.AssignLabel(ctx, "vc_1", "   "); !errors.Is(err, services.ErrInput) {
		t.Fatalf("expected input error, got %v", err)
	}
}

func TestMerge(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	if err := store.AssignLabel(ctx, "vc_2", "ui_ux_issues"); err != nil {
		t.Fatalf("AssignLabel: %v", err)
	}
	if err := store.Merge(ctx, "vc_2", "vc_1"); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	snap := store.Snapshot()
	if _, ok := snap["vc_2"]; ok {
		t.Fatal("source cluster should be removed")
	}
	if len(snap["vc_1"]) != 3 {
		t.Fatalf("expected 3 members, got %v", snap["vc_1"])
	}
	item, _ := store.Item("c")
	if item.ClusterID != "vc_1" {
		t.Fatalf("moved item cluster = %q", item.ClusterID)
	}
	if got := store.Labels()["vc_1"]; got != "ui_ux_issues" {
		t.Fatalf("destination should adopt source label, got %q", got)
	}

	// Repeating the merge, or merging into itself, changes nothing.
	if err := store.Merge(ctx, "vc_2", "vc_1"); err != nil {
		t.Fatalf("repeat Merge: %v", err)
	}
	if err := store.Merge(ctx, "vc_1", "vc_1"); err != nil {
		t.Fatalf("self Merge: %v", err)
	}
	if len(store.Snapshot()["vc_1"]) != 3 {
		t.Fatal("idempotent merge changed membership")
	}

	detail, err := store.Cluster("vc_2")
	if err != nil || detail.ID != "vc_1" {
		t.Fatalf("merged id should resolve to destination, got %+v, %v", detail, err)
	}
}

func TestMergeKeepsDestinationLabel(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	_ = store.AssignLabel(ctx, "vc_1", "crash_stability")
	_ = store.AssignLabel(ctx, "vc_2", "ui_ux_issues")

	if err := store.Merge(ctx, "vc_2", "vc_1"); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if got := store.Labels()["vc_1"]; got != "crash_stability" {
		t.Fatalf("destination label = %q", got)
	}
}

func TestMergeUnknown(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()
	for _, pair := range [][2]string{{"vc_9", "vc_1"}, {"vc_1", "vc_9"}} {
		if err := store.Merge(ctx, pair[0], pair[1]); !errors.Is(err, services.ErrNotFound) {
			t.Fatalf("Merge(%s, %s): expected not found, got %v", pair[0], pair[1], err)
		}
	}
}

func TestMergedAwayIDIsNotAMutationTarget(t *testing.T) {
	store, err := clusterstore.New(sampleItems(), report.ClusterMap{
		"vc_1": members("a", "b"),
		"vc_2": members("c"),
		"vc_3": members("d"),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	ctx := context.Background()
	if err := store.Merge(ctx, "vc_2", "vc_1"); err != nil {
		t.Fatalf("Merge: %v", err)
	}

	if err := store.Merge(ctx, "vc_2", "vc_3"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("merging a merged-away id elsewhere: expected not found, got %v", err)
	}
	if err := store.Merge(ctx, "vc_3", "vc_2"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("merging into a merged-away id: expected not found, got %v", err)
	}
	if err := store.AssignLabel(ctx, "vc_2", "crash_stability"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("labeling a merged-away id: expected not found, got %v", err)
	}

	snap := store.Snapshot()
	if len(snap["vc_1"]) != 3 || len(snap["vc_3"]) != 1 {
		t.Fatalf("rejected mutations changed membership: %v", snap)
	}
	if labels := store.Labels(); len(labels) != 0 {
		t.Fatalf("rejected label was applied: %v", labels)
	}
}

func TestPersistAndOpen(t *testing.T) {
	paths := statePaths(t)
	store := newStore(t, clusterstore.WithPaths(paths))
	ctx := context.Background()

	_ = store.AssignLabel(ctx, "vc_1", "crash_stability")
	_ = store.Merge(ctx, "vc_2", "vc_1")
	if err := store.Persist(ctx); err != nil {
		t.Fatalf("Persist: %v", err)
	}

	for _, p := range []string{paths.ReportsCSV, paths.ClustersJSON, clusterstore.SidecarPath(paths.ClustersJSON)} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s: %v", p, err)
		}
	}
	data, _ := os.ReadFile(paths.ClustersJSON)
	if !strings.Contains(string(data), `"vc_1"`) || strings.Contains(string(data), `"vc_2"`) {
		t.Fatalf("unexpected clusters json:\n%s", data)
	}

	reopened, err := clusterstore.Open(paths)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if got := reopened.Labels()["vc_1"]; got != "crash_stability" {
		t.Fatalf("label lost across reopen: %q", got)
	}
	if err := reopened.Merge(ctx, "vc_2", "vc_1"); err != nil {
		t.Fatalf("merge alias lost across reopen: %v", err)
	}
	item, _ := reopened.Item("c")
	if item.ClusterID != "vc_1" || item.Category != "crash_stability" {
		t.Fatalf("unexpected reopened item %+v", item)
	}
}

func TestPersistKeepsNumericMembers(t *testing.T) {
	paths := statePaths(t)
	items := []report.Item{{ID: "101", Filename: "x.png"}, {ID: "102", Filename: "y.png"}}
	clusters := report.ClusterMap{"vc_1": {report.NumericMember("101"), report.NumericMember("102")}}
	store, err := clusterstore.New(items, clusters, clusterstore.WithPaths(paths))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := store.Persist(context.Background()); err != nil {
		t.Fatalf("Persist: %v", err)
	}
	data, _ := os.ReadFile(paths.ClustersJSON)
	if strings.Contains(string(data), `"101"`) {
		t.Fatalf("numeric members were quoted:\n%s", data)
	}
}

func TestOpenErrors(t *testing.T) {
	paths := statePaths(t)
	if _, err := clusterstore.Open(paths); !errors.Is(err, services.ErrInput) {
		t.Fatalf("missing files: expected input error, got %v", err)
	}

	testsupport.WriteReport(t, paths.ReportsCSV, sampleItems())
	testsupport.WriteFile(t, paths.ClustersJSON, "{not json")
	if _, err := clusterstore.Open(paths); !errors.Is(err, services.ErrInput) {
		t.Fatalf("bad json: expected input error, got %v", err)
	}

	testsupport.WriteClusters(t, paths.ClustersJSON, map[string][]string{"vc_1": {"a", "ghost"}})
	if _, err := clusterstore.Open(paths); !errors.Is(err, services.ErrConsistency) {
		t.Fatalf("unknown member: expected consistency error, got %v", err)
	}
}

func TestAutoPersistFailureKeepsState(t *testing.T) {
	paths := statePaths(t)
	store := newStore(t, clusterstore.WithPaths(paths), clusterstore.WithAutoPersist(true))
	ctx := context.Background()

	if err := store.AssignLabel(ctx, "vc_1", "crash_stability"); err != nil {
		t.Fatalf("AssignLabel: %v", err)
	}

	// A directory where the CSV should be makes the next write fail.
	if err := os.Remove(paths.ReportsCSV); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(paths.ReportsCSV, "blocker"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := store.Merge(ctx, "vc_2", "vc_1"); err == nil {
		t.Fatal("expected persist failure")
	}
	if _, ok := store.Snapshot()["vc_2"]; !ok {
		t.Fatal("failed merge must leave the old state in place")
	}
	item, _ := store.Item("c")
	if item.ClusterID != "vc_2" {
		t.Fatalf("failed merge moved item to %q", item.ClusterID)
	}
}

func TestFailedPersistRestoresEarlierFiles(t *testing.T) {
	paths := statePaths(t)
	store := newStore(t, clusterstore.WithPaths(paths), clusterstore.WithAutoPersist(true))
	ctx := context.Background()

	if err := store.AssignLabel(ctx, "vc_1", "crash_stability"); err != nil {
		t.Fatalf("AssignLabel: %v", err)
	}
	wantCSV, err := os.ReadFile(paths.ReportsCSV)
	if err != nil {
		t.Fatalf("read reports: %v", err)
	}
	wantClusters, err := os.ReadFile(paths.ClustersJSON)
	if err != nil {
		t.Fatalf("read clusters: %v", err)
	}

	// The report and clusters files are replaced before the sidecar fails.
	sidecar := clusterstore.SidecarPath(paths.ClustersJSON)
	if err := os.Remove(sidecar); err != nil {
		t.Fatalf("remove sidecar: %v", err)
	}
	if err := os.MkdirAll(filepath.Join(sidecar, "blocker"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	if err := store.Merge(ctx, "vc_2", "vc_1"); err == nil {
		t.Fatal("expected persist failure")
	}
	gotCSV, err := os.ReadFile(paths.ReportsCSV)
	if err != nil {
		t.Fatalf("read reports: %v", err)
	}
	if string(gotCSV) != string(wantCSV) {
		t.Fatalf("reports csv left from the failed merge:\n%s", gotCSV)
	}
	gotClusters, err := os.ReadFile(paths.ClustersJSON)
	if err != nil {
		t.Fatalf("read clusters: %v", err)
	}
	if string(gotClusters) != string(wantClusters) {
		t.Fatalf("clusters json left from the failed merge:\n%s", gotClusters)
	}
}

func TestJournalRecordsMutations(t *testing.T) {
	j := testsupport.MustOpenJournal(t)
	store := newStore(t, clusterstore.WithJournal(j))
	ctx := services.WithRunID(context.Background(), "run-7")

	_ = store.AssignLabel(ctx, "vc_1", "crash_stability")
	_ = store.Merge(ctx, "vc_2", "vc_1")
	_ = store.Merge(ctx, "vc_2", "vc_1")

	entries, err := j.List(context.Background(), journal.Filter{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (no-op merge skipped), got %+v", entries)
	}
	merge := entries[0]
	if merge.Op != journal.OpMerge || merge.ClusterID != "vc_2" || merge.Target != "vc_1" || merge.Members != 1 {
		t.Fatalf("unexpected merge entry %+v", merge)
	}
	if merge.RunID != "run-7" {
		t.Fatalf("run id not propagated: %+v", merge)
	}
}

type failingRecorder struct{}

func (failingRecorder) Record(context.Context, journal.Entry) (journal.Entry, error) {
	return journal.Entry{}, errors.New("disk full")
}

func TestJournalFailureDoesNotRollBack(t *testing.T) {
	store := newStore(t, clusterstore.WithJournal(failingRecorder{}))
	if err := store.Merge(context.Background(), "vc_2", "vc_1"); err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if _, ok := store.Snapshot()["vc_2"]; ok {
		t.Fatal("merge should be committed despite journal failure")
	}
}

func TestUpdateItems(t *testing.T) {
	store := newStore(t)
	changed, err := store.UpdateItems(context.Background(), journal.OpRelabel, "", func(item report.Item) (report.Item, bool) {
		if item.Category == "ui_ux_issues" {
			return item, false
		}
		item.Category = "ui_ux_issues"
		item.ClusterID = "ignored"
		return item, true
	})
	if err != nil {
		t.Fatalf("UpdateItems: %v", err)
	}
	if len(changed) != 4 || changed[0] != "a" {
		t.Fatalf("unexpected changed ids %v", changed)
	}
	item, _ := store.Item("a")
	if item.ClusterID != "vc_1" {
		t.Fatalf("UpdateItems must not change membership, got %q", item.ClusterID)
	}
}

func TestConcurrentMutations(t *testing.T) {
	items := make([]report.Item, 0, 40)
	clusters := report.ClusterMap{}
	for i := 0; i < 40; i++ {
		id := string(rune('A'+i%26)) + string(rune('a'+i/26))
		items = append(items, report.Item{ID: id, Filename: id + ".png"})
		clusters["vc_"+id] = members(id)
	}
	store, err := clusterstore.New(items, clusters)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	for _, item := range items[1:] {
		wg.Add(2)
		go func(id string) {
			defer wg.Done()
			if err := store.Merge(ctx, "vc_"+id, "vc_"+items[0].ID); err != nil {
				t.Errorf("Merge: %v", err)
			}
		}(item.ID)
		go func() {
			defer wg.Done()
			_ = store.Clusters()
		}()
	}
	wg.Wait()

	snap := store.Snapshot()
	if len(snap) != 1 || len(snap["vc_"+items[0].ID]) != 40 {
		t.Fatalf("expected a single cluster of 40, got %d clusters", len(snap))
	}
}
