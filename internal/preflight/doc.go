// Package preflight provides readiness checks for the binaries, services
// and filesystem paths that bugsort depends on.
//
// These checks run in two contexts:
//   - `bugsort run` calls RunAll before touching any screenshot and refuses
//     to start when a required check fails.
//   - `bugsort doctor` prints every result, including optional services.
//
// Each check is gated by its config toggle -- disabled features are skipped.
package preflight
