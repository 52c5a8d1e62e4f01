package pipeline

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"bugsort/internal/arrange"
	"bugsort/internal/services"
)

// Source is one screenshot to process along with reporter metadata.
type Source struct {
	Path     string
	Filename string
	Comment  string
	UserTag  string
	Prior    string
}

// Metadata is the reporter-supplied context for one screenshot.
type Metadata struct {
	Comment       string `json:"comment"`
	UserTag       string `json:"user_tag"`
	PriorCategory string `json:"prior_category"`
}

// LoadMetadata reads a filename-keyed metadata JSON file. An empty path
// yields no metadata. Keys are matched case-insensitively.
func LoadMetadata(path string) (map[string]Metadata, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, services.Wrap(services.ErrInput, "pipeline", "metadata", "missing "+path, err)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "pipeline", "metadata", path, err)
	}
	var raw map[string]Metadata
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, services.Wrap(services.ErrInput, "pipeline", "metadata", "decode "+path, err)
	}
	out := make(map[string]Metadata, len(raw))
	for name, meta := range raw {
		out[strings.ToLower(strings.TrimSpace(name))] = meta
	}
	return out, nil
}

// Discover lists screenshots in dir with an allowed extension and attaches
// any matching metadata. Sources are ordered by filename.
func Discover(dir string, exts []string, metadata map[string]Metadata) ([]Source, error) {
	names, err := arrange.ScanDir(dir, exts)
	if err != nil {
		return nil, err
	}
	sources := make([]Source, 0, len(names))
	for _, name := range names {
		src := Source{Path: filepath.Join(dir, name), Filename: name}
		if meta, ok := metadata[strings.ToLower(name)]; ok {
			src.Comment = meta.Comment
			src.UserTag = meta.UserTag
			src.Prior = meta.PriorCategory
		}
		sources = append(sources, src)
	}
	return sources, nil
}
