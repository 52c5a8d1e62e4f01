// Package metrics defines the Prometheus collectors for pipeline runs and
// cluster store mutations.
package metrics
