// Package embedding calls an HTTP image-embedding endpoint and caches the
// resulting vectors in memory.
//
// The endpoint receives {"model": ..., "image": <base64>} and must answer
// with either {"embedding": [...]} or {"data": [{"embedding": [...]}]}.
// Rate limiting and server errors are retried with exponential backoff,
// honoring Retry-After.
package embedding
