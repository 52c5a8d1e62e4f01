// Package journal keeps an append-only SQLite audit log of reviewer
// mutations and pipeline runs.
//
// Writes retry briefly on SQLITE_BUSY so a review server and a CLI command
// can share one database file. A nil *Journal is valid and records nothing.
package journal
