// Package services defines shared utilities consumed by the pipeline, the
// cluster store, and the external OCR and embedding integrations.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, item IDs, stage names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper so failures classify as
//     input, not-found, external-call, or consistency errors.
//   - The single-method collaborator interfaces for text extraction and image
//     embedding, so the pipeline can be exercised with fakes.
package services
