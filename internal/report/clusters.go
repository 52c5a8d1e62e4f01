package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"bugsort/internal/services"
)

// MemberID is a cluster member identifier that remembers whether it was
// written as a JSON string or a JSON number.
type MemberID struct {
	value   string
	numeric bool
}

// StringMember returns a member written as a JSON string.
func StringMember(id string) MemberID {
	return MemberID{value: id}
}

// NumericMember returns a member written as a bare JSON number.
func NumericMember(id string) MemberID {
	return MemberID{value: id, numeric: true}
}

func (m MemberID) String() string { return m.value }

// Numeric reports whether the member was a JSON number.
func (m MemberID) Numeric() bool { return m.numeric }

// MarshalJSON writes the member in its original form.
func (m MemberID) MarshalJSON() ([]byte, error) {
	if m.numeric {
		return []byte(m.value), nil
	}
	return json.Marshal(m.value)
}

// UnmarshalJSON accepts strings and numbers.
func (m *MemberID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = MemberID{value: s}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("cluster member must be a string or number: %s", data)
	}
	*m = MemberID{value: n.String(), numeric: true}
	return nil
}

// ClusterMap maps cluster IDs to their members.
type ClusterMap map[string][]MemberID

// Strings returns the map with plain string members.
func (c ClusterMap) Strings() map[string][]string {
	out := make(map[string][]string, len(c))
	for id, members := range c {
		ids := make([]string, len(members))
		for i, m := range members {
			ids[i] = m.value
		}
		out[id] = ids
	}
	return out
}

// ReadClusters decodes a clusters JSON document.
func ReadClusters(r io.Reader) (ClusterMap, error) {
	var out ClusterMap
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		return nil, services.Wrap(services.ErrInput, "report", "read clusters", "decode clusters json", err)
	}
	if out == nil {
		out = ClusterMap{}
	}
	return out, nil
}

// ReadClustersFile reads a clusters JSON file.
func ReadClustersFile(path string) (ClusterMap, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "report", "read clusters", "open "+path, err)
	}
	defer f.Close()
	return ReadClusters(f)
}

// MarshalClusters renders clusters as indented JSON with sorted keys and
// sorted members, so identical maps always produce identical bytes.
func MarshalClusters(clusters ClusterMap) ([]byte, error) {
	sorted := make(ClusterMap, len(clusters))
	for id, members := range clusters {
		copied := make([]MemberID, len(members))
		copy(copied, members)
		sort.Slice(copied, func(i, j int) bool { return copied[i].value < copied[j].value })
		sorted[id] = copied
	}
	data, err := json.MarshalIndent(sorted, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// WriteClusters writes clusters to w.
func WriteClusters(w io.Writer, clusters ClusterMap) error {
	data, err := MarshalClusters(clusters)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
