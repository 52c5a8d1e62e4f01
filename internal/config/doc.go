// Package config loads, normalizes, and validates bugsort configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// BUGSORT_EMBEDDING_API_KEY, optionally sourced from a local .env file.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical extension lists, and clear validation errors.
package config
