// Package clusterstore owns the mapping from cluster IDs to screenshot
// items, along with cluster labels and merge history.
//
// Every mutation runs against a private copy of the state. The copy is
// validated, optionally written to disk, and only then published, so a
// failed label or merge leaves both memory and the persisted files as they
// were. Readers never block on writers for longer than a pointer swap.
//
// Persisted state is three files: the report CSV, the clusters JSON, and a
// sidecar beside the clusters JSON that carries labels and merge aliases.
package clusterstore
