package testsupport

import (
	"path/filepath"
	"testing"

	"bugsort/internal/journal"
)

// MustOpenJournal opens a journal in a temp directory and registers cleanup.
func MustOpenJournal(t testing.TB) *journal.Journal {
	t.Helper()

	j, err := journal.OpenPath(filepath.Join(t.TempDir(), "journal.db"))
	if err != nil {
		t.Fatalf("journal.OpenPath: %v", err)
	}
	t.Cleanup(func() {
		j.Close()
	})
	return j
}
