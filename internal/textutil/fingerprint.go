package textutil

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Tokens shorter than this are OCR noise. Two-rune UI words like "ok" stay.
const minTokenRunes = 2

// Fingerprint is a bag-of-words vector over OCR text.
type Fingerprint struct {
	tokens map[string]float64
	norm   float64
}

// NewFingerprint builds a term-count fingerprint, or nil when text has no
// usable tokens.
func NewFingerprint(text string) *Fingerprint {
	counts := termCounts(Tokenize(text))
	if len(counts) == 0 {
		return nil
	}
	return &Fingerprint{tokens: counts, norm: vectorNorm(counts)}
}

// Tokenize lowercases text and splits it on every rune that is not a letter,
// combining mark or digit. Tamil vowel signs are marks, so Tamil words stay
// whole.
func Tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsMark(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len([]rune(f)) >= minTokenRunes {
			out = append(out, f)
		}
	}
	return out
}

// TokenCount returns the number of distinct tokens.
func (f *Fingerprint) TokenCount() int {
	if f == nil {
		return 0
	}
	return len(f.tokens)
}

// Keywords returns up to n terms that set group apart from corpus, heaviest
// first with ties in alphabetical order. Terms are weighted by their count in
// group times log((N+1)/(1+df)) over the corpus documents, so a term found in
// every document scores zero and is dropped.
func Keywords(corpus, group []string, n int) []string {
	if n <= 0 || len(group) == 0 {
		return nil
	}
	df := make(map[string]int)
	for _, doc := range corpus {
		for term := range termCounts(Tokenize(doc)) {
			df[term]++
		}
	}
	tf := make(map[string]float64)
	for _, doc := range group {
		for _, term := range Tokenize(doc) {
			tf[term]++
		}
	}

	docs := float64(len(corpus))
	weights := make(map[string]float64, len(tf))
	terms := make([]string, 0, len(tf))
	for term, count := range tf {
		w := count * math.Log((docs+1)/(1+float64(df[term])))
		if w <= 0 {
			continue
		}
		weights[term] = w
		terms = append(terms, term)
	}
	if len(terms) == 0 {
		return nil
	}
	sort.Slice(terms, func(i, j int) bool {
		if weights[terms[i]] != weights[terms[j]] {
			return weights[terms[i]] > weights[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

func termCounts(tokens []string) map[string]float64 {
	counts := make(map[string]float64, len(tokens))
	for _, t := range tokens {
		counts[t]++
	}
	return counts
}

func vectorNorm(v map[string]float64) float64 {
	var sum float64
	for _, w := range v {
		sum += w * w
	}
	return math.Sqrt(sum)
}
