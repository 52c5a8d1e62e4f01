package clusterstore

import (
	"fmt"
	"sort"

	"bugsort/internal/report"
	"bugsort/internal/services"
)

// state is one immutable version of the store. Mutations work on a clone
// and swap it in only after validation and persistence succeed.
type state struct {
	items    map[string]report.Item
	order    []string
	clusters map[string][]string
	memberOf map[string]string
	labels   map[string]string
	aliases  map[string]string
	numeric  map[string]bool
}

func newState(items []report.Item, clusters report.ClusterMap) (*state, error) {
	s := &state{
		items:    make(map[string]report.Item, len(items)),
		order:    make([]string, 0, len(items)),
		clusters: make(map[string][]string, len(clusters)),
		memberOf: make(map[string]string),
		labels:   make(map[string]string),
		aliases:  make(map[string]string),
		numeric:  make(map[string]bool),
	}
	for _, item := range items {
		if item.ID == "" {
			return nil, services.Wrap(services.ErrInput, "clusterstore", "load", "item with empty id", nil)
		}
		if _, dup := s.items[item.ID]; dup {
			return nil, services.Wrap(services.ErrInput, "clusterstore", "load", fmt.Sprintf("duplicate item id %q", item.ID), nil)
		}
		s.items[item.ID] = item
		s.order = append(s.order, item.ID)
	}
	for id, members := range clusters {
		ids := make([]string, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.String())
			if m.Numeric() {
				s.numeric[m.String()] = true
			}
		}
		s.clusters[id] = ids
	}
	if err := s.reindex(); err != nil {
		return nil, err
	}
	s.syncItems()
	return s, nil
}

func (s *state) clone() *state {
	c := &state{
		items:    make(map[string]report.Item, len(s.items)),
		order:    append([]string(nil), s.order...),
		clusters: make(map[string][]string, len(s.clusters)),
		memberOf: make(map[string]string, len(s.memberOf)),
		labels:   make(map[string]string, len(s.labels)),
		aliases:  make(map[string]string, len(s.aliases)),
		numeric:  make(map[string]bool, len(s.numeric)),
	}
	for k, v := range s.items {
		c.items[k] = v
	}
	for k, v := range s.clusters {
		c.clusters[k] = append([]string(nil), v...)
	}
	for k, v := range s.memberOf {
		c.memberOf[k] = v
	}
	for k, v := range s.labels {
		c.labels[k] = v
	}
	for k, v := range s.aliases {
		c.aliases[k] = v
	}
	for k, v := range s.numeric {
		c.numeric[k] = v
	}
	return c
}

// reindex rebuilds memberOf and checks that every member is a known item
// that belongs to exactly one cluster.
func (s *state) reindex() error {
	memberOf := make(map[string]string)
	ids := make([]string, 0, len(s.clusters))
	for id := range s.clusters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if id == "" {
			return services.Wrap(services.ErrConsistency, "clusterstore", "validate", "cluster with empty id", nil)
		}
		for _, member := range s.clusters[id] {
			if _, ok := s.items[member]; !ok {
				return services.Wrap(services.ErrConsistency, "clusterstore", "validate",
					fmt.Sprintf("cluster %q references unknown item %q", id, member), nil)
			}
			if prev, dup := memberOf[member]; dup {
				return services.Wrap(services.ErrConsistency, "clusterstore", "validate",
					fmt.Sprintf("item %q is in both %q and %q", member, prev, id), nil)
			}
			memberOf[member] = id
		}
	}
	for id := range s.labels {
		if _, ok := s.clusters[id]; !ok {
			delete(s.labels, id)
		}
	}
	s.memberOf = memberOf
	return nil
}

// syncItems makes each item's ClusterID agree with the cluster map.
func (s *state) syncItems() {
	for id, item := range s.items {
		item.ClusterID = s.memberOf[id]
		s.items[id] = item
	}
}

// resolve follows merge aliases to a live cluster ID.
func (s *state) resolve(id string) (string, bool) {
	seen := make(map[string]bool)
	for {
		if _, ok := s.clusters[id]; ok {
			return id, true
		}
		next, ok := s.aliases[id]
		if !ok || seen[id] {
			return "", false
		}
		seen[id] = true
		id = next
	}
}

func (s *state) orderedItems() []report.Item {
	out := make([]report.Item, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.items[id])
	}
	return out
}

func (s *state) clusterMap() report.ClusterMap {
	out := make(report.ClusterMap, len(s.clusters))
	for id, members := range s.clusters {
		ids := make([]report.MemberID, len(members))
		for i, m := range members {
			if s.numeric[m] {
				ids[i] = report.NumericMember(m)
			} else {
				ids[i] = report.StringMember(m)
			}
		}
		out[id] = ids
	}
	return out
}
