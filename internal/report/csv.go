package report

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"bugsort/internal/services"
)

// Columns is the report header, in write order.
var Columns = []string{
	"id", "filename", "ocr_text", "ocr_confidence", "normalized_text",
	"predicted_screen_id", "screen_confidence", "cluster_id", "category",
	"comment", "user_tag", "prior_category", "source_path",
}

var requiredColumns = []string{"id", "filename"}

// ReadCSV parses a report. Unknown columns are ignored, missing optional
// columns stay empty and unparseable confidences read as zero.
func ReadCSV(r io.Reader) ([]Item, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, services.Wrap(services.ErrInput, "report", "read csv", "report is empty", nil)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "report", "read csv", "read header", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		name = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(name, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, services.Wrap(services.ErrInput, "report", "read csv", fmt.Sprintf("missing required column %q", col), nil)
		}
	}

	var items []Item
	seen := make(map[string]int)
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, services.Wrap(services.ErrInput, "report", "read csv", fmt.Sprintf("line %d", line), err)
		}
		field := func(name string) string {
			i, ok := index[name]
			if !ok || i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		item := Item{
			ID:                field("id"),
			Filename:          field("filename"),
			OCRText:           field("ocr_text"),
			OCRConfidence:     parseConfidence(field("ocr_confidence")),
			NormalizedText:    field("normalized_text"),
			PredictedScreenID: field("predicted_screen_id"),
			ScreenConfidence:  parseConfidence(field("screen_confidence")),
			ClusterID:         field("cluster_id"),
			Category:          field("category"),
			Comment:           field("comment"),
			UserTag:           field("user_tag"),
			PriorCategory:     field("prior_category"),
			SourcePath:        field("source_path"),
		}
		if item.ID == "" {
			return nil, services.Wrap(services.ErrInput, "report", "read csv", fmt.Sprintf("line %d: empty id", line), nil)
		}
		if first, dup := seen[item.ID]; dup {
			return nil, services.Wrap(services.ErrInput, "report", "read csv",
				fmt.Sprintf("line %d: duplicate id %q (first on line %d)", line, item.ID, first), nil)
		}
		seen[item.ID] = line
		items = append(items, item)
	}
	return items, nil
}

func parseConfidence(value string) float64 {
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil || f < 0 || math.IsNaN(f) {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// ReadCSVFile reads a report from disk.
func ReadCSVFile(path string) ([]Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrInput, "report", "read csv", "open "+path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

// WriteCSV writes items with the full header, in the given order.
func WriteCSV(w io.Writer, items []Item) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(Columns); err != nil {
		return err
	}
	for _, item := range items {
		record := []string{
			item.ID,
			item.Filename,
			item.OCRText,
			formatConfidence(item.OCRConfidence),
			item.NormalizedText,
			item.PredictedScreenID,
			formatConfidence(item.ScreenConfidence),
			item.ClusterID,
			item.Category,
			item.Comment,
			item.UserTag,
			item.PriorCategory,
			item.SourcePath,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// MarshalCSV renders items to bytes.
func MarshalCSV(items []Item) ([]byte, error) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, items); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatConfidence(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
