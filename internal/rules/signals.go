package rules

import (
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"bugsort/internal/textnorm"
)

// Input carries the raw signals for one item.
type Input struct {
	Comment  string
	OCRText  string
	Filename string
	Prior    string
}

// Signals is the prepared form of an Input that rules match against.
type Signals struct {
	Comment  string
	OCR      string
	Filename string
	Prior    Category

	// raw lower-cased comment and OCR text for structural checks
	raw string

	commentTokens map[string]bool
	ocrTokens     map[string]bool
	combined      string
	combinedToks  map[string]bool
}

// Prepare normalizes an Input.
func Prepare(in Input) Signals {
	s := Signals{
		Comment:  textnorm.Normalize(in.Comment),
		OCR:      textnorm.Normalize(in.OCRText),
		Filename: strings.ToLower(filepath.Base(strings.TrimSpace(in.Filename))),
	}
	if s.Filename == "." {
		s.Filename = ""
	}
	if prior, err := Parse(in.Prior); err == nil {
		s.Prior = prior
	}
	s.commentTokens = tokenSet(s.Comment)
	s.ocrTokens = tokenSet(s.OCR)
	s.combined = strings.TrimSpace(s.Comment + " " + s.OCR)
	s.combinedToks = tokenSet(s.combined)

	var parts []string
	for _, p := range []string{in.Comment, in.OCRText} {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			parts = append(parts, p)
		}
	}
	s.raw = strings.Join(parts, " ")
	return s
}

func tokenSet(text string) map[string]bool {
	fields := strings.Fields(text)
	out := make(map[string]bool, len(fields))
	for _, f := range fields {
		out[f] = true
	}
	return out
}

// shortKeyword is the longest keyword (in runes) matched only as a whole token.
const shortKeyword = 3

// containsAny reports whether text holds any keyword. Short keywords must be
// whole tokens so "ui" does not fire on "build".
func containsAny(text string, tokens map[string]bool, keywords []string) bool {
	if text == "" {
		return false
	}
	for _, k := range keywords {
		if utf8.RuneCountInString(k) <= shortKeyword && !strings.Contains(k, " ") {
			if tokens[k] {
				return true
			}
			continue
		}
		if strings.Contains(text, k) {
			return true
		}
	}
	return false
}

func hasToken(tokens map[string]bool, words []string) bool {
	for _, w := range words {
		if tokens[w] {
			return true
		}
	}
	return false
}

func (s Signals) comment(keywords []string) bool {
	return containsAny(s.Comment, s.commentTokens, keywords)
}

func (s Signals) ocr(keywords []string) bool {
	return containsAny(s.OCR, s.ocrTokens, keywords)
}

func (s Signals) anywhere(keywords []string) bool {
	return containsAny(s.combined, s.combinedToks, keywords) || s.filenameHas(keywords)
}

func (s Signals) filenameHas(keywords []string) bool {
	if s.Filename == "" || evidenceFile(s.Filename) {
		return false
	}
	for _, k := range keywords {
		if !strings.Contains(k, " ") && utf8.RuneCountInString(k) > shortKeyword && strings.Contains(s.Filename, k) {
			return true
		}
	}
	return false
}

func evidenceFile(name string) bool {
	return strings.HasSuffix(name, ".txt") || strings.HasSuffix(name, ".log")
}

var (
	digitPattern    = regexp.MustCompile(`\d`)
	keyValuePattern = regexp.MustCompile(`\b[a-z][a-z0-9_\s]{2,}:\s*\S+`)
	currencyPattern = regexp.MustCompile(`\b(rs|inr)\b|₹|\bamount\b|\btotal\b|\bbalance\b`)
)

var headerKeywords = []string{
	"date", "time", "invoice", "total", "amount", "balance", "settings",
	"login", "sign in", "signin", "password", "otp", "error", "failed", "network",
}

var filenameHints = []string{"login", "signin", "error", "timeout", "network"}

// Usable reports whether the item carries enough signal to justify a
// best-effort category instead of the fallback.
func (s Signals) Usable() bool {
	if utf8.RuneCountInString(s.raw) >= 10 {
		return true
	}
	if digitPattern.MatchString(s.raw) || currencyPattern.MatchString(s.raw) || keyValuePattern.MatchString(s.raw) {
		return true
	}
	for _, k := range headerKeywords {
		if strings.Contains(s.raw, k) {
			return true
		}
	}
	if s.Filename == "" {
		return false
	}
	for _, k := range filenameHints {
		if strings.Contains(s.Filename, k) {
			return true
		}
	}
	return digitPattern.MatchString(s.Filename) || evidenceFile(s.Filename)
}
