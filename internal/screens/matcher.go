package screens

import (
	"bugsort/internal/textnorm"
	"bugsort/internal/textutil"
)

// Match methods.
const (
	MethodExact     = "exact"
	MethodFuzzy     = "fuzzy"
	MethodUncertain = "uncertain"
)

// Result is the outcome of matching one item's text.
type Result struct {
	ScreenID   string
	Confidence float64
	Method     string
}

// Uncertain reports whether no screen was resolved.
func (r Result) Uncertain() bool {
	return r.ScreenID == ""
}

var uncertain = Result{Method: MethodUncertain}

// Matcher resolves OCR text to a registry screen. It holds no mutable state
// and is safe for concurrent use.
type Matcher struct {
	registry *Registry
	policy   Policy
}

// NewMatcher builds a matcher over registry with the given thresholds.
func NewMatcher(registry *Registry, policy Policy) *Matcher {
	if registry == nil {
		registry = DefaultRegistry()
	}
	return &Matcher{registry: registry, policy: policy.normalized()}
}

// Policy returns the effective thresholds.
func (m *Matcher) Policy() Policy {
	return m.policy
}

// Registry returns the registry the matcher resolves against.
func (m *Matcher) Registry() *Registry {
	return m.registry
}

// Match resolves text to a screen.
//
// Low OCR confidence or empty text is uncertain. An exact variant match scores
// 1.0. Otherwise the best fuzzy score at or above MinSimilarity wins, capped
// at FuzzyCeiling. Ties go to the lowest screen ID.
func (m *Matcher) Match(text string, ocrConfidence float64) Result {
	if ocrConfidence < m.policy.OCRConfidenceFloor {
		return uncertain
	}
	normalized := textnorm.Normalize(text)
	if normalized == "" {
		return uncertain
	}

	if id, ok := m.registry.exact[normalized]; ok {
		return Result{ScreenID: id, Confidence: 1.0, Method: MethodExact}
	}

	key := textnorm.MatchKey(normalized)
	var bestID string
	var bestScore float64
	for _, v := range m.registry.variants {
		score := variantScore(normalized, key, v)
		// variants are ID-ordered, so strict > keeps the lowest ID on ties
		if score > bestScore {
			bestScore = score
			bestID = v.screenID
		}
	}
	if bestID == "" || bestScore < m.policy.MinSimilarity {
		return uncertain
	}
	confidence := bestScore
	if confidence > m.policy.FuzzyCeiling {
		confidence = m.policy.FuzzyCeiling
	}
	return Result{ScreenID: bestID, Confidence: confidence, Method: MethodFuzzy}
}

func variantScore(text, key string, v variant) float64 {
	score := max(textutil.IndelRatio(text, v.text), textutil.TokenCosine(text, v.text))
	if v.latin != v.text {
		score = max(score, textutil.IndelRatio(text, v.latin))
	}
	if key != "" {
		score = max(score, textutil.IndelRatio(key, v.latin))
	}
	return score
}
