package pipeline

import (
	"context"
	"fmt"

	"bugsort/internal/clusterstore"
	"bugsort/internal/journal"
	"bugsort/internal/report"
	"bugsort/internal/rules"
)

// RelabelSummary describes what a relabel pass changed. Reviewed lists the
// items left alone because a reviewer set their category.
type RelabelSummary struct {
	Before   map[string]int `json:"before"`
	After    map[string]int `json:"after"`
	Changed  []string       `json:"changed"`
	Reviewed []string       `json:"reviewed,omitempty"`
}

// Relabel re-runs the rule engine over every item in store and persists the
// result. Items whose category does not change are left alone, as are
// members of clusters labeled with a category.
func Relabel(ctx context.Context, store *clusterstore.Store, engine *rules.Engine) (RelabelSummary, error) {
	if engine == nil {
		engine = rules.Default()
	}
	summary := RelabelSummary{Before: countCategories(store.Items())}
	reviewed := reviewedClusters(store.Labels())

	changed, err := store.UpdateItems(ctx, journal.OpRelabel, "rule engine relabel", func(item report.Item) (report.Item, bool) {
		if reviewed[item.ClusterID] {
			summary.Reviewed = append(summary.Reviewed, item.ID)
			return item, false
		}
		category := string(engine.Categorize(rules.Input{
			Comment:  item.Comment,
			OCRText:  item.OCRText,
			Filename: item.Filename,
			Prior:    item.PriorCategory,
		}))
		if category == item.Category {
			return item, false
		}
		item.Category = category
		return item, true
	})
	if err != nil {
		return summary, fmt.Errorf("relabel: %w", err)
	}
	summary.Changed = changed
	summary.After = countCategories(store.Items())

	if err := store.Persist(ctx); err != nil {
		return summary, err
	}
	return summary, nil
}

// reviewedClusters returns the clusters whose label is a category.
func reviewedClusters(labels map[string]string) map[string]bool {
	out := make(map[string]bool, len(labels))
	for id, label := range labels {
		if rules.Valid(label) {
			out[id] = true
		}
	}
	return out
}

func countCategories(items []report.Item) map[string]int {
	out := make(map[string]int)
	for _, item := range items {
		out[item.Category]++
	}
	return out
}
