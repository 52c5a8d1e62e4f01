package arrange

import (
	"path/filepath"
	"sort"
	"strings"
)

// Strategy identifies how an identifier was matched to files. Lower values
// win.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyMapping
	StrategyStem
	StrategyPrefix
	StrategyContains
)

func (s Strategy) String() string {
	switch s {
	case StrategyMapping:
		return "mapping"
	case StrategyStem:
		return "stem"
	case StrategyPrefix:
		return "prefix"
	case StrategyContains:
		return "contains"
	default:
		return "none"
	}
}

// Input describes one resolution problem. Files are base names found in the
// input directory. IDToFilename is optional.
type Input struct {
	Clusters     map[string][]string
	IDToFilename map[string]string
	Files        []string
	Extensions   []string
}

// Match is the set of files one identifier resolved to.
type Match struct {
	ClusterID string
	ID        string
	Strategy  Strategy
	Files     []string
}

// Missing is an identifier that no file represents.
type Missing struct {
	ClusterID string
	ID        string
}

// Result is the outcome of Resolve. Matches are ordered by cluster then
// identifier; every slice is sorted.
type Result struct {
	Matches    []Match
	Missing    []Missing
	Unassigned []string
}

// Assigned returns the distinct files that matched at least one identifier.
func (r Result) Assigned() []string {
	seen := make(map[string]struct{})
	for _, m := range r.Matches {
		for _, f := range m.Files {
			seen[f] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for f := range seen {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

type candidate struct {
	name  string
	lower string
	stem  string
}

// Resolve maps every cluster member to the files that represent it. For each
// identifier the first strategy with a hit wins and all of its hits are
// kept. Comparisons ignore case and files outside Extensions are never
// considered. Resolve does no I/O.
func Resolve(in Input) Result {
	allowed := extensionSet(in.Extensions)
	files := make([]candidate, 0, len(in.Files))
	byLower := make(map[string]string, len(in.Files))
	for _, name := range in.Files {
		if !allowed.has(name) {
			continue
		}
		lower := strings.ToLower(strings.TrimSpace(name))
		files = append(files, candidate{
			name:  name,
			lower: lower,
			stem:  strings.TrimSuffix(lower, strings.ToLower(filepath.Ext(lower))),
		})
		byLower[lower] = name
	}
	sort.Slice(files, func(i, j int) bool { return files[i].name < files[j].name })

	mapping := make(map[string]string, len(in.IDToFilename))
	for id, filename := range in.IDToFilename {
		mapping[strings.ToLower(strings.TrimSpace(id))] = strings.ToLower(strings.TrimSpace(filename))
	}

	clusterIDs := make([]string, 0, len(in.Clusters))
	for id := range in.Clusters {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Strings(clusterIDs)

	var result Result
	used := make(map[string]struct{})
	for _, clusterID := range clusterIDs {
		members := append([]string(nil), in.Clusters[clusterID]...)
		sort.Strings(members)
		for _, member := range members {
			strategy, hits := resolveOne(member, mapping, byLower, files)
			if len(hits) == 0 {
				result.Missing = append(result.Missing, Missing{ClusterID: clusterID, ID: member})
				continue
			}
			for _, h := range hits {
				used[h] = struct{}{}
			}
			result.Matches = append(result.Matches, Match{
				ClusterID: clusterID,
				ID:        member,
				Strategy:  strategy,
				Files:     hits,
			})
		}
	}

	for _, f := range files {
		if _, ok := used[f.name]; !ok {
			result.Unassigned = append(result.Unassigned, f.name)
		}
	}
	return result
}

func resolveOne(member string, mapping map[string]string, byLower map[string]string, files []candidate) (Strategy, []string) {
	ident := strings.ToLower(strings.TrimSpace(member))
	if ident == "" {
		return StrategyNone, nil
	}
	if mapped, ok := mapping[ident]; ok {
		if name, ok := byLower[mapped]; ok {
			return StrategyMapping, []string{name}
		}
	}

	checks := []struct {
		strategy Strategy
		match    func(c candidate) bool
	}{
		{StrategyStem, func(c candidate) bool { return c.stem == ident }},
		{StrategyPrefix, func(c candidate) bool { return strings.HasPrefix(c.lower, ident) }},
		{StrategyContains, func(c candidate) bool { return strings.Contains(c.lower, ident) }},
	}
	for _, check := range checks {
		var hits []string
		for _, c := range files {
			if check.match(c) {
				hits = append(hits, c.name)
			}
		}
		if len(hits) > 0 {
			return check.strategy, hits
		}
	}
	return StrategyNone, nil
}

type extSet map[string]struct{}

func extensionSet(exts []string) extSet {
	set := make(extSet, len(exts))
	for _, e := range exts {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			set[e] = struct{}{}
		}
	}
	return set
}

func (s extSet) has(name string) bool {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(name), "."))
	_, ok := s[ext]
	return ok
}
