// Package report reads and writes the persisted report CSV and the clusters
// JSON that reviewers edit.
package report
