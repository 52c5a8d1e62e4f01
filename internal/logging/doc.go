// Package logging builds the slog loggers used across bugsort: a console
// handler for people, a JSON handler for machines, and helpers that tag lines
// with the run, item, stage and request IDs carried in a context.
package logging
