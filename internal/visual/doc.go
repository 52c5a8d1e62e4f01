// Package visual groups screenshots that no screen could be resolved for by
// the similarity of their image embeddings.
//
// Two backends implement Clusterer: Agglomerative for exact hierarchical
// clustering and ANN for large batches. Namer keeps cluster IDs stable across
// runs, so an ID a reviewer has seen keeps naming the same group.
package visual
