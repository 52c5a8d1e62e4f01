package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// allowedSymbols survive filtering alongside letters, marks, and digits.
const allowedSymbols = "&'-/%₹@+#"

// punctuationConfusions maps typographic variants OCR engines emit to their
// plain forms.
var punctuationConfusions = strings.NewReplacer(
	"‘", "'", // left single quote
	"’", "'", // right single quote
	"ʼ", "'", // modifier apostrophe
	"`", "'",
	"´", "'",
	"‐", "-",
	"‑", "-",
	"‒", "-",
	"–", "-",
	"—", "-",
	"−", "-",
)

// Normalize returns the canonical form of OCR or user supplied text: NFKC,
// OCR confusion repair, Unicode case folding, allow-list filtering, and
// whitespace collapse. Letters and combining marks from every script are kept,
// so Tamil vowel signs and the virama survive.
//
// Normalize is total and idempotent. The empty string maps to itself.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}
	s := norm.NFKC.String(raw)
	s = punctuationConfusions.Replace(s)
	s = repairPipes(s)
	s = cases.Fold().String(s)
	s = norm.NFKC.String(s)
	s = strings.Map(filterRune, s)

	fields := strings.Fields(s)
	for i, field := range fields {
		fields[i] = repairDigits(field)
	}
	return strings.Join(fields, " ")
}

// NormalizeAll normalizes each value and drops the ones that become empty.
func NormalizeAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if n := Normalize(value); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func filterRune(r rune) rune {
	switch {
	case unicode.IsLetter(r), unicode.IsMark(r), unicode.IsDigit(r):
		return r
	case unicode.IsSpace(r):
		return ' '
	case strings.ContainsRune(allowedSymbols, r):
		return r
	default:
		return ' '
	}
}

// lookalikes are the marks OCR engines emit for a lowercase L.
const lookalikes = "|¦!"

// repairPipes turns a vertical bar or exclamation mark between two letters
// into "l", the most common OCR misread of a lowercase L.
func repairPipes(s string) string {
	if !strings.ContainsAny(s, lookalikes) {
		return s
	}
	runes := []rune(s)
	for i := 1; i < len(runes)-1; i++ {
		if !strings.ContainsRune(lookalikes, runes[i]) {
			continue
		}
		if unicode.IsLetter(runes[i-1]) && unicode.IsLetter(runes[i+1]) {
			runes[i] = 'l'
		}
	}
	return string(runes)
}

// repairDigits replaces a 0 or 1 that sits between two letters ("l0gin",
// "sett1ngs"). Tokens holding any other digit are left alone.
func repairDigits(token string) string {
	if !strings.ContainsAny(token, "01") {
		return token
	}
	runes := []rune(token)
	for _, r := range runes {
		if unicode.IsDigit(r) && r != '0' && r != '1' {
			return token
		}
	}
	out := make([]rune, len(runes))
	copy(out, runes)
	for i := 1; i < len(runes)-1; i++ {
		if runes[i] != '0' && runes[i] != '1' {
			continue
		}
		if !unicode.IsLetter(runes[i-1]) || !unicode.IsLetter(runes[i+1]) {
			continue
		}
		if runes[i] == '0' {
			out[i] = 'o'
		} else {
			out[i] = 'l'
		}
	}
	return string(out)
}
