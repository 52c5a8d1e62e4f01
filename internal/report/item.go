package report

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Item is one screenshot report row.
type Item struct {
	ID                string
	Filename          string
	OCRText           string
	OCRConfidence     float64
	NormalizedText    string
	PredictedScreenID string
	ScreenConfidence  float64
	ClusterID         string
	Category          string
	Comment           string
	UserTag           string
	PriorCategory     string
	SourcePath        string
}

// Resolved reports whether the item was matched to a known screen.
func (i Item) Resolved() bool {
	return i.PredictedScreenID != ""
}

// ID sources.
const (
	IDSourceContent = "content"
	IDSourcePath    = "path"
)

// IDFromContent hashes the file bytes, so renamed copies keep their ID.
func IDFromContent(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// IDFromPath hashes the absolute path.
func IDFromPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	sum := sha1.Sum([]byte(abs))
	return hex.EncodeToString(sum[:]), nil
}

// IDFunc returns the ID derivation for source.
func IDFunc(source string) func(string) (string, error) {
	if source == IDSourcePath {
		return IDFromPath
	}
	return IDFromContent
}
