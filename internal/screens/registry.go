package screens

import (
	_ "embed"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"bugsort/internal/services"
	"bugsort/internal/textnorm"
)

//go:embed screens.toml
var defaultRegistryTOML []byte

// Entry is one canonical screen and the text variants that identify it.
type Entry struct {
	ID       string   `toml:"id"`
	Variants []string `toml:"variants"`
}

type registryFile struct {
	Screens []Entry `toml:"screens"`
}

type variant struct {
	screenID string
	text     string
	// latin is the transliterated form for Tamil variants, otherwise text.
	latin string
}

// Registry is an immutable, ID-ordered set of screens with normalized variants.
type Registry struct {
	entries  []Entry
	variants []variant
	exact    map[string]string
	ids      map[string]struct{}
}

// NewRegistry validates entries and normalizes their variants. Empty IDs,
// duplicate IDs, and variants that normalize to nothing are rejected.
func NewRegistry(entries []Entry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, services.Wrap(services.ErrInput, "screens", "registry", "no screens defined", nil)
	}
	sorted := make([]Entry, 0, len(entries))
	ids := make(map[string]struct{}, len(entries))
	for i, entry := range entries {
		id := strings.TrimSpace(entry.ID)
		if id == "" {
			return nil, services.Wrap(services.ErrInput, "screens", "registry", fmt.Sprintf("screen %d has no id", i), nil)
		}
		if strings.ContainsAny(id, " \t\n") {
			return nil, services.Wrap(services.ErrInput, "screens", "registry", fmt.Sprintf("screen id %q contains whitespace", id), nil)
		}
		if _, dup := ids[id]; dup {
			return nil, services.Wrap(services.ErrInput, "screens", "registry", fmt.Sprintf("duplicate screen id %q", id), nil)
		}
		ids[id] = struct{}{}
		if len(entry.Variants) == 0 {
			return nil, services.Wrap(services.ErrInput, "screens", "registry", fmt.Sprintf("screen %q has no variants", id), nil)
		}
		normalized := make([]string, 0, len(entry.Variants))
		for _, raw := range entry.Variants {
			v := textnorm.Normalize(raw)
			if v == "" {
				return nil, services.Wrap(services.ErrInput, "screens", "registry", fmt.Sprintf("screen %q has a variant that is empty after normalization: %q", id, raw), nil)
			}
			normalized = append(normalized, v)
		}
		sorted = append(sorted, Entry{ID: id, Variants: normalized})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ID < sorted[j].ID })

	r := &Registry{entries: sorted, exact: make(map[string]string), ids: ids}
	for _, entry := range sorted {
		for _, v := range entry.Variants {
			latin := textnorm.MatchKey(v)
			if latin == "" {
				latin = v
			}
			r.variants = append(r.variants, variant{screenID: entry.ID, text: v, latin: latin})
			// entries are ID-ordered, so the first writer is the lowest ID
			if _, taken := r.exact[v]; !taken {
				r.exact[v] = entry.ID
			}
		}
	}
	return r, nil
}

// LoadRegistry reads a TOML registry file of [[screens]] tables.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "screens", "load registry", path, err)
	}
	return parseRegistry(data)
}

// DefaultRegistry returns the built-in registry.
func DefaultRegistry() *Registry {
	r, err := parseRegistry(defaultRegistryTOML)
	if err != nil {
		panic(fmt.Sprintf("built-in screen registry is invalid: %v", err))
	}
	return r
}

func parseRegistry(data []byte) (*Registry, error) {
	var file registryFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, services.Wrap(services.ErrInput, "screens", "parse registry", "", err)
	}
	return NewRegistry(file.Screens)
}

// Entries returns a copy of the registry entries in ID order.
func (r *Registry) Entries() []Entry {
	out := make([]Entry, len(r.entries))
	for i, entry := range r.entries {
		out[i] = Entry{ID: entry.ID, Variants: append([]string(nil), entry.Variants...)}
	}
	return out
}

// Contains reports whether id names a registered screen.
func (r *Registry) Contains(id string) bool {
	if r == nil {
		return false
	}
	_, ok := r.ids[id]
	return ok
}

// Len returns the number of screens.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}
