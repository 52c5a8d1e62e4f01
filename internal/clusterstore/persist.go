package clusterstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"bugsort/internal/fileutil"
	"bugsort/internal/logging"
	"bugsort/internal/report"
	"bugsort/internal/services"
)

const lockRetryDelay = 50 * time.Millisecond

// Persist writes the report CSV, the clusters JSON and the sidecar, in that
// order. Each file is replaced atomically; a lock file beside the clusters
// JSON keeps other processes from interleaving writes.
func (s *Store) Persist(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return s.persistState(ctx, s.current())
}

func (s *Store) persistState(ctx context.Context, st *state) error {
	if s.paths.ReportsCSV == "" || s.paths.ClustersJSON == "" {
		return services.Wrap(services.ErrInput, "clusterstore", "persist", "persistence paths not configured", nil)
	}
	if err := os.MkdirAll(filepath.Dir(s.paths.ClustersJSON), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}

	lock := flock.New(s.paths.ClustersJSON + ".lock")
	locked, err := lock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return fmt.Errorf("acquire persist lock: %w", err)
	}
	if !locked {
		return fmt.Errorf("acquire persist lock: %s is held", lock.Path())
	}
	defer func() {
		_ = lock.Unlock()
	}()

	csvData, err := report.MarshalCSV(st.orderedItems())
	if err != nil {
		return fmt.Errorf("encode reports: %w", err)
	}
	clusterData, err := report.MarshalClusters(st.clusterMap())
	if err != nil {
		return fmt.Errorf("encode clusters: %w", err)
	}
	sideData, err := encodeSidecar(st)
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}

	writes := []fileWrite{
		{path: s.paths.ReportsCSV, data: csvData},
		{path: s.paths.ClustersJSON, data: clusterData},
		{path: s.paths.sidecar(), data: sideData},
	}
	for i := range writes {
		if err := writes[i].capture(); err != nil {
			return err
		}
	}
	for i, w := range writes {
		err := ctx.Err()
		if err == nil {
			if werr := fileutil.WriteFileAtomic(w.path, w.data, 0o644); werr != nil {
				err = fmt.Errorf("write %s: %w", w.path, werr)
			}
		}
		if err != nil {
			s.restore(ctx, writes[:i])
			return err
		}
	}

	s.logger.Debug("store persisted",
		logging.String("reports", s.paths.ReportsCSV),
		logging.String("clusters", s.paths.ClustersJSON),
		logging.Int("items", len(st.order)),
		logging.Int("cluster_count", len(st.clusters)),
	)
	return nil
}

// fileWrite is one file replaced by a persist, with what it held before.
type fileWrite struct {
	path    string
	data    []byte
	prev    []byte
	existed bool
}

func (w *fileWrite) capture() error {
	info, err := os.Stat(w.path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return nil
	case err != nil:
		return fmt.Errorf("stat %s: %w", w.path, err)
	case info.IsDir():
		// The write itself fails on a directory.
		return nil
	}
	prev, err := os.ReadFile(w.path)
	if err != nil {
		return fmt.Errorf("read %s: %w", w.path, err)
	}
	w.prev, w.existed = prev, true
	return nil
}

// restore puts back the files a failed persist already replaced, so the
// report and clusters files on disk stay from the same commit.
func (s *Store) restore(ctx context.Context, done []fileWrite) {
	for i := len(done) - 1; i >= 0; i-- {
		w := done[i]
		var err error
		if w.existed {
			err = fileutil.WriteFileAtomic(w.path, w.prev, 0o644)
		} else {
			err = os.Remove(w.path)
		}
		if err != nil {
			logging.ErrorWithContext(logging.WithContext(ctx, s.logger), "persist rollback failed", "persist_rollback_failed",
				logging.String("path", w.path),
				logging.Error(err),
				logging.String(logging.FieldImpact, "files on disk are from different commits"),
			)
		}
	}
}

func encodeSidecar(st *state) ([]byte, error) {
	side := sidecar{Labels: st.labels, Aliases: st.aliases}
	if side.Labels == nil {
		side.Labels = map[string]string{}
	}
	if side.Aliases == nil {
		side.Aliases = map[string]string{}
	}
	data, err := json.MarshalIndent(side, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

func decodeJSON(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
