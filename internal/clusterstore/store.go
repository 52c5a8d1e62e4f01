package clusterstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"

	"bugsort/internal/journal"
	"bugsort/internal/logging"
	"bugsort/internal/metrics"
	"bugsort/internal/report"
	"bugsort/internal/services"
)

// Paths locates the persisted files. Sidecar defaults to SidecarPath of
// ClustersJSON.
type Paths struct {
	ReportsCSV   string
	ClustersJSON string
	Sidecar      string
}

func (p Paths) sidecar() string {
	if p.Sidecar != "" {
		return p.Sidecar
	}
	return SidecarPath(p.ClustersJSON)
}

// SidecarPath returns the labels/aliases file that accompanies a clusters
// JSON file.
func SidecarPath(clustersJSON string) string {
	return strings.TrimSuffix(clustersJSON, ".json") + ".labels.json"
}

// Recorder receives an audit entry after every committed mutation.
type Recorder interface {
	Record(ctx context.Context, entry journal.Entry) (journal.Entry, error)
}

// Option configures a Store.
type Option func(*Store)

// WithPaths sets where Persist writes.
func WithPaths(paths Paths) Option {
	return func(s *Store) { s.paths = paths }
}

// WithAutoPersist persists every mutation before it is committed in memory.
func WithAutoPersist(enabled bool) Option {
	return func(s *Store) { s.autoPersist = enabled }
}

// WithJournal records committed mutations. Failures are logged only.
func WithJournal(r Recorder) Option {
	return func(s *Store) {
		if j, ok := r.(*journal.Journal); ok && j == nil {
			return
		}
		s.journal = r
	}
}

// WithLogger sets the store logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logging.NewComponentLogger(logger, "clusterstore")
		}
	}
}

// WithMetrics counts mutations.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithScreenValidator restricts non-category labels to accepted screen IDs.
func WithScreenValidator(valid func(string) bool) Option {
	return func(s *Store) { s.validScreen = valid }
}

// Store holds items and their cluster membership. Readers see consistent
// snapshots; writers are serialized and commit atomically.
type Store struct {
	writeMu sync.Mutex
	mu      sync.RWMutex
	state   *state

	paths       Paths
	autoPersist bool
	journal     Recorder
	logger      *slog.Logger
	metrics     *metrics.Metrics
	validScreen func(string) bool
}

// New builds a store from items and a cluster map. Every member must be a
// known item and no item may sit in two clusters.
func New(items []report.Item, clusters report.ClusterMap, opts ...Option) (*Store, error) {
	st, err := newState(items, clusters)
	if err != nil {
		return nil, err
	}
	s := &Store{state: st, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.SetClusters(len(st.clusters))
	return s, nil
}

// Open loads the report CSV, the clusters JSON and the optional sidecar.
// The returned store persists back to the same paths.
func Open(paths Paths, opts ...Option) (*Store, error) {
	items, err := report.ReadCSVFile(paths.ReportsCSV)
	if err != nil {
		return nil, err
	}
	clusters, err := report.ReadClustersFile(paths.ClustersJSON)
	if err != nil {
		return nil, err
	}
	side, err := readSidecar(paths.sidecar())
	if err != nil {
		return nil, err
	}

	st, err := newState(items, clusters)
	if err != nil {
		return nil, err
	}
	for id, label := range side.Labels {
		st.labels[id] = label
	}
	for src, dst := range side.Aliases {
		st.aliases[src] = dst
	}
	if err := st.reindex(); err != nil {
		return nil, err
	}

	s := &Store{state: st, paths: paths, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	s.metrics.SetClusters(len(st.clusters))
	return s, nil
}

// Paths returns the persistence locations.
func (s *Store) Paths() Paths {
	return s.paths
}

func (s *Store) current() *state {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// ClusterSummary describes one cluster.
type ClusterSummary struct {
	ID    string
	Label string
	Size  int
}

// ClusterDetail is a cluster with its member items in member order.
type ClusterDetail struct {
	ClusterSummary
	Items []report.Item
}

// Clusters lists clusters sorted by ID.
func (s *Store) Clusters() []ClusterSummary {
	st := s.current()
	out := make([]ClusterSummary, 0, len(st.clusters))
	for id, members := range st.clusters {
		out = append(out, ClusterSummary{ID: id, Label: st.labels[id], Size: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Cluster returns a cluster and its items. Merged-away IDs resolve to the
// cluster they were merged into.
func (s *Store) Cluster(id string) (ClusterDetail, error) {
	st := s.current()
	live, ok := st.resolve(id)
	if !ok {
		return ClusterDetail{}, services.Wrap(services.ErrNotFound, "clusterstore", "cluster", fmt.Sprintf("unknown cluster %q", id), nil)
	}
	members := st.clusters[live]
	detail := ClusterDetail{
		ClusterSummary: ClusterSummary{ID: live, Label: st.labels[live], Size: len(members)},
		Items:          make([]report.Item, 0, len(members)),
	}
	for _, m := range members {
		detail.Items = append(detail.Items, st.items[m])
	}
	return detail, nil
}

// Item returns one item.
func (s *Store) Item(id string) (report.Item, error) {
	item, ok := s.current().items[id]
	if !ok {
		return report.Item{}, services.Wrap(services.ErrNotFound, "clusterstore", "item", fmt.Sprintf("unknown item %q", id), nil)
	}
	return item, nil
}

// Items returns all items in report order.
func (s *Store) Items() []report.Item {
	return s.current().orderedItems()
}

// Snapshot returns a deep copy of the cluster map.
func (s *Store) Snapshot() report.ClusterMap {
	return s.current().clusterMap()
}

// Labels returns a copy of the cluster labels.
func (s *Store) Labels() map[string]string {
	st := s.current()
	out := make(map[string]string, len(st.labels))
	for k, v := range st.labels {
		out[k] = v
	}
	return out
}

type sidecar struct {
	Labels  map[string]string `json:"labels"`
	Aliases map[string]string `json:"aliases"`
}

func readSidecar(path string) (sidecar, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return sidecar{}, nil
	}
	if err != nil {
		return sidecar{}, services.Wrap(services.ErrInput, "clusterstore", "read sidecar", path, err)
	}
	var side sidecar
	if err := decodeJSON(data, &side); err != nil {
		return sidecar{}, services.Wrap(services.ErrInput, "clusterstore", "read sidecar", path, err)
	}
	return side, nil
}
