// Package pipeline runs screenshots through OCR, screen matching, rule
// categorization and visual clustering, then hands the result to a
// clusterstore for persistence.
//
// Per-item work fans out across a bounded worker pool. OCR and embedding
// failures degrade the affected item instead of failing the run. Clustering
// runs once over the whole batch of uncertain items.
package pipeline
