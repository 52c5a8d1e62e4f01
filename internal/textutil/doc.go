// Package textutil holds the string helpers shared by screen matching, the
// review server and the arranger: token fingerprints with cosine and
// edit-ratio similarity, distinguishing keywords for a group of OCR texts,
// and filename sanitizing for cluster folders.
package textutil
