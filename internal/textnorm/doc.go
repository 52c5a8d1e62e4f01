// Package textnorm canonicalizes OCR and reporter text before it is compared
// with anything else.
//
// Normalize is the single entry point for matching input. Transliterate and
// MatchKey produce an auxiliary Latin key for Tamil text; that key is used
// for screen matching only and never replaces the normalized text.
package textnorm
