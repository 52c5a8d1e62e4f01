package clusterstore

import (
	"context"
	"fmt"
	"strings"

	"bugsort/internal/journal"
	"bugsort/internal/logging"
	"bugsort/internal/report"
	"bugsort/internal/rules"
	"bugsort/internal/services"
)

// Mutation results reported to metrics.
const (
	resultOK    = "ok"
	resultNoop  = "noop"
	resultError = "error"
)

// change is produced by a mutation function. A nil change means the mutation
// had no effect.
type change struct {
	entry journal.Entry
}

// mutate applies fn to a clone of the current state and commits the clone
// only when it validates and, with auto-persist, reaches disk.
func (s *Store) mutate(ctx context.Context, op string, fn func(*state) (*change, error)) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	defer func() {
		if err != nil {
			s.metrics.StoreMutation(op, resultError)
		}
	}()

	if err := ctx.Err(); err != nil {
		return err
	}

	next := s.current().clone()
	ch, err := fn(next)
	if err != nil {
		return err
	}
	if ch == nil {
		s.metrics.StoreMutation(op, resultNoop)
		return nil
	}
	if err := next.reindex(); err != nil {
		return err
	}
	next.syncItems()

	if s.autoPersist {
		if err := s.persistState(ctx, next); err != nil {
			return err
		}
	}

	s.mu.Lock()
	s.state = next
	s.mu.Unlock()

	s.record(ctx, ch.entry)
	s.metrics.StoreMutation(op, resultOK)
	s.metrics.SetClusters(len(next.clusters))
	return nil
}

func (s *Store) record(ctx context.Context, entry journal.Entry) {
	if s.journal == nil {
		return
	}
	if runID, ok := services.RunIDFromContext(ctx); ok && entry.RunID == "" {
		entry.RunID = runID
	}
	if _, err := s.journal.Record(ctx, entry); err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, s.logger), "journal write failed", "journal_write_failed",
			logging.String("op", entry.Op),
			logging.String("cluster_id", entry.ClusterID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "mutation is persisted but missing from history"),
		)
	}
}

// AssignLabel labels a cluster. A taxonomy category sets every member's
// category; any other label is a screen ID and marks every member as
// resolved to that screen with full confidence.
func (s *Store) AssignLabel(ctx context.Context, clusterID, label string) error {
	label = strings.TrimSpace(label)
	if label == "" {
		s.metrics.StoreMutation(journal.OpLabel, resultError)
		return services.Wrap(services.ErrInput, "clusterstore", "label", "label must not be empty", nil)
	}
	return s.mutate(ctx, journal.OpLabel, func(st *state) (*change, error) {
		live := clusterID
		if _, ok := st.clusters[live]; !ok {
			return nil, services.Wrap(services.ErrNotFound, "clusterstore", "label", fmt.Sprintf("unknown cluster %q", clusterID), nil)
		}

		parsed, perr := rules.Parse(label)
		category, isCategory := string(parsed), perr == nil
		if !isCategory && s.validScreen != nil && !s.validScreen(label) {
			return nil, services.Wrap(services.ErrInput, "clusterstore", "label",
				fmt.Sprintf("%q is neither a category nor a known screen", label), nil)
		}

		for _, member := range st.clusters[live] {
			item := st.items[member]
			if isCategory {
				item.Category = category
			} else {
				item.PredictedScreenID = label
				item.ScreenConfidence = 1.0
			}
			st.items[member] = item
		}
		if isCategory {
			label = category
		}
		st.labels[live] = label

		s.logger.Info("cluster labeled",
			logging.String("cluster_id", live),
			logging.String("label", label),
			logging.Bool("category", isCategory),
			logging.Int("members", len(st.clusters[live])),
		)
		return &change{entry: journal.Entry{
			Op:        journal.OpLabel,
			ClusterID: live,
			Label:     label,
			Members:   len(st.clusters[live]),
		}}, nil
	})
}

// Merge moves every member of src into dst and removes src. Merging a
// cluster into itself, or repeating a merge that already happened, does
// nothing. Both IDs must name live clusters; a merged-away src is only
// accepted when it was merged into dst.
func (s *Store) Merge(ctx context.Context, src, dst string) error {
	return s.mutate(ctx, journal.OpMerge, func(st *state) (*change, error) {
		if _, ok := st.clusters[dst]; !ok {
			return nil, services.Wrap(services.ErrNotFound, "clusterstore", "merge", fmt.Sprintf("unknown cluster %q", dst), nil)
		}
		if src == dst {
			return nil, nil
		}
		if _, ok := st.clusters[src]; !ok {
			if target, merged := st.resolve(src); merged && target == dst {
				return nil, nil
			}
			return nil, services.Wrap(services.ErrNotFound, "clusterstore", "merge", fmt.Sprintf("unknown cluster %q", src), nil)
		}
		liveSrc, liveDst := src, dst

		moved := st.clusters[liveSrc]
		st.clusters[liveDst] = append(st.clusters[liveDst], moved...)
		delete(st.clusters, liveSrc)

		if st.labels[liveDst] == "" && st.labels[liveSrc] != "" {
			st.labels[liveDst] = st.labels[liveSrc]
		}
		delete(st.labels, liveSrc)

		for alias, target := range st.aliases {
			if target == liveSrc {
				st.aliases[alias] = liveDst
			}
		}
		st.aliases[liveSrc] = liveDst

		s.logger.Info("clusters merged",
			logging.String("source", liveSrc),
			logging.String("destination", liveDst),
			logging.Int("moved", len(moved)),
		)
		return &change{entry: journal.Entry{
			Op:        journal.OpMerge,
			ClusterID: liveSrc,
			Target:    liveDst,
			Label:     st.labels[liveDst],
			Members:   len(moved),
		}}, nil
	})
}

// UpdateItems rewrites items in place. fn returns the updated item and
// whether it changed. Cluster membership cannot be changed this way. The
// IDs of changed items are returned in report order.
func (s *Store) UpdateItems(ctx context.Context, op, detail string, fn func(item report.Item) (report.Item, bool)) ([]string, error) {
	var changed []string
	err := s.mutate(ctx, op, func(st *state) (*change, error) {
		changed = changed[:0]
		for _, id := range st.order {
			item := st.items[id]
			updated, ok := fn(item)
			if !ok {
				continue
			}
			updated.ID = item.ID
			updated.ClusterID = item.ClusterID
			st.items[id] = updated
			changed = append(changed, id)
		}
		if len(changed) == 0 {
			return nil, nil
		}
		return &change{entry: journal.Entry{
			Op:      op,
			Members: len(changed),
			Detail:  detail,
		}}, nil
	})
	if err != nil {
		return nil, err
	}
	return changed, nil
}
