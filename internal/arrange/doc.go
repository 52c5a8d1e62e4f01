// Package arrange lays screenshots out on disk by cluster.
//
// Resolve is pure: it decides which input files represent each cluster
// member. BuildPlan and Execute turn that decision into copies or moves
// under the output directory, with one folder per cluster and a reserved
// folder for files no identifier claimed.
package arrange
