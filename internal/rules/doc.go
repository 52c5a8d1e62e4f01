// Package rules maps an item's comment, OCR text, filename and optional prior
// prediction to exactly one taxonomy category.
//
// The engine is an ordered rule list evaluated first-match-wins, so priority
// is data that can be listed and tested on its own. Operators may add CEL
// rules that run after the built-in filename rules.
package rules
