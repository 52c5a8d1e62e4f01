// Package ocr wraps the tesseract CLI as a services.TextExtractor.
package ocr
