package testsupport

import (
	"os"
	"path/filepath"
	"testing"

	"bugsort/internal/report"
)

// WriteFile writes content to path, creating parent directories. Distinct
// content yields distinct content-derived item IDs.
func WriteFile(t testing.TB, path, content string) string {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

// WriteExecutable writes a /bin/sh script with body to path.
func WriteExecutable(t testing.TB, path, body string) string {
	t.Helper()

	WriteFile(t, path, "#!/bin/sh\n"+body+"\n")
	if err := os.Chmod(path, 0o755); err != nil {
		t.Fatalf("chmod %s: %v", path, err)
	}
	return path
}

// WriteReport writes items as a report CSV.
func WriteReport(t testing.TB, path string, items []report.Item) {
	t.Helper()

	data, err := report.MarshalCSV(items)
	if err != nil {
		t.Fatalf("marshal report: %v", err)
	}
	WriteFile(t, path, string(data))
}

// WriteClusters writes a clusters JSON file with string members.
func WriteClusters(t testing.TB, path string, clusters map[string][]string) {
	t.Helper()

	out := make(report.ClusterMap, len(clusters))
	for id, members := range clusters {
		ids := make([]report.MemberID, len(members))
		for i, m := range members {
			ids[i] = report.StringMember(m)
		}
		out[id] = ids
	}
	data, err := report.MarshalClusters(out)
	if err != nil {
		t.Fatalf("marshal clusters: %v", err)
	}
	WriteFile(t, path, string(data))
}
