package services

import "context"

// TextExtractor reads printed text from an image. Confidence is in [0,1].
type TextExtractor interface {
	ExtractText(ctx context.Context, imagePath string) (text string, confidence float64, err error)
}

// ImageEmbedder converts an image to a fixed-length feature vector.
type ImageEmbedder interface {
	EmbedImage(ctx context.Context, imagePath string) ([]float64, error)
}
