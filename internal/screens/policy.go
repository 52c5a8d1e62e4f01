package screens

// Policy centralizes screen matching thresholds.
type Policy struct {
	// MinSimilarity is the lowest fuzzy score accepted as a match.
	MinSimilarity float64
	// OCRConfidenceFloor marks text below this OCR confidence as unusable.
	OCRConfidenceFloor float64
	// FuzzyCeiling caps fuzzy confidences so only exact matches reach 1.0.
	FuzzyCeiling float64
}

// DefaultPolicy mirrors the 80/100 fuzzy threshold used when labels were
// first assigned by hand.
func DefaultPolicy() Policy {
	return Policy{
		MinSimilarity:      0.80,
		OCRConfidenceFloor: 0.30,
		FuzzyCeiling:       0.99,
	}
}

func (p Policy) normalized() Policy {
	d := DefaultPolicy()

	if p.MinSimilarity <= 0 || p.MinSimilarity > 1 {
		p.MinSimilarity = d.MinSimilarity
	}
	if p.OCRConfidenceFloor < 0 || p.OCRConfidenceFloor >= 1 {
		p.OCRConfidenceFloor = d.OCRConfidenceFloor
	}
	if p.FuzzyCeiling <= 0 || p.FuzzyCeiling >= 1 {
		p.FuzzyCeiling = d.FuzzyCeiling
	}
	if p.MinSimilarity > p.FuzzyCeiling {
		p.MinSimilarity = p.FuzzyCeiling
	}
	return p
}
