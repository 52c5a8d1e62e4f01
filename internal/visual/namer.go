package visual

import (
	"sort"
	"strconv"
	"strings"
)

// Namer hands out stable cluster IDs of the form prefix+N.
type Namer struct {
	prefix  string
	byItem  map[string]string
	claimed map[string]bool
	next    int
}

// NewNamer seeds a namer from a prior cluster map (cluster ID to members).
// Prior IDs without the prefix are ignored.
func NewNamer(prefix string, prior map[string][]string) *Namer {
	n := &Namer{
		prefix:  prefix,
		byItem:  make(map[string]string),
		claimed: make(map[string]bool),
		next:    1,
	}
	ids := make([]string, 0, len(prior))
	for id := range prior {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		index, ok := n.index(id)
		if !ok {
			continue
		}
		if index >= n.next {
			n.next = index + 1
		}
		for _, member := range prior[id] {
			if _, taken := n.byItem[member]; !taken {
				n.byItem[member] = id
			}
		}
	}
	return n
}

func (n *Namer) index(id string) (int, bool) {
	suffix, ok := strings.CutPrefix(id, n.prefix)
	if !ok || suffix == "" {
		return 0, false
	}
	value, err := strconv.Atoi(suffix)
	if err != nil || value < 0 {
		return 0, false
	}
	return value, true
}

// Name returns an ID for a partition. Partitions must be passed in order of
// their smallest member; members must be sorted.
func (n *Namer) Name(members []string) string {
	if len(members) > 0 {
		if id, ok := n.byItem[members[0]]; ok && !n.claimed[id] {
			n.claimed[id] = true
			return id
		}
	}
	for {
		id := n.prefix + strconv.Itoa(n.next)
		n.next++
		if !n.claimed[id] {
			n.claimed[id] = true
			return id
		}
	}
}

// Assignment is a named partition of items.
type Assignment struct {
	ByItem   map[string]string
	Clusters map[string][]string
}

// Assign partitions inputs and names every partition.
func Assign(clusterer Clusterer, namer *Namer, inputs []Input) (Assignment, error) {
	partitions, err := clusterer.Partition(inputs)
	if err != nil {
		return Assignment{}, err
	}
	out := Assignment{
		ByItem:   make(map[string]string, len(inputs)),
		Clusters: make(map[string][]string, len(partitions)),
	}
	for _, members := range partitions {
		id := namer.Name(members)
		out.Clusters[id] = members
		for _, item := range members {
			out.ByItem[item] = id
		}
	}
	return out, nil
}
