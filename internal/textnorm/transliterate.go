package textnorm

import (
	"strings"
	"unicode"
)

const (
	tamilVirama      = '்'
	tamilSignE       = 'ெ'
	tamilSignEE      = 'ே'
	tamilSignAA      = 'ா'
	tamilLengthMark  = 'ௗ'
	tamilDigitZero   = '௦'
	tamilDigitNine   = '௯'
	tamilBlockStart  = '\u0B80'
	tamilBlockFinish = '\u0BFF'
)

var tamilVowels = map[rune]string{
	'அ': "a", 'ஆ': "aa", 'இ': "i", 'ஈ': "ii", 'உ': "u", 'ஊ': "uu",
	'எ': "e", 'ஏ': "ee", 'ஐ': "ai", 'ஒ': "o", 'ஓ': "oo", 'ஔ': "au",
	'ஃ': "h",
}

var tamilConsonants = map[rune]string{
	'க': "k", 'ங': "ng", 'ச': "ch", 'ஞ': "nj", 'ட': "t", 'ண': "n",
	'த': "th", 'ந': "n", 'ப': "p", 'ம': "m", 'ய': "y", 'ர': "r",
	'ல': "l", 'வ': "v", 'ழ': "zh", 'ள': "l", 'ற': "r", 'ன': "n",
	'ஜ': "j", 'ஶ': "sh", 'ஷ': "sh", 'ஸ': "s", 'ஹ': "h",
}

var tamilVowelSigns = map[rune]string{
	'ா': "aa", 'ி': "i", 'ீ': "ii", 'ு': "u", 'ூ': "uu",
	'ெ': "e", 'ே': "ee", 'ை': "ai", 'ொ': "o", 'ோ': "oo",
	'ௌ': "au",
}

// Transliterate renders Tamil script in a simplified Latin form so text read
// by OCR in one script can be compared against registry variants written in
// the other. Runes outside the Tamil block pass through. The result is a
// matching key only and is never stored as normalized text.
func Transliterate(s string) string {
	if !HasTamil(s) {
		return s
	}
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if v, ok := tamilVowels[r]; ok {
			b.WriteString(v)
			continue
		}
		if c, ok := tamilConsonants[r]; ok {
			b.WriteString(c)
			vowel, consumed := inherentVowel(runes[i+1:])
			b.WriteString(vowel)
			i += consumed
			continue
		}
		if r >= tamilDigitZero && r <= tamilDigitNine {
			b.WriteRune('0' + (r - tamilDigitZero))
			continue
		}
		if r >= tamilBlockStart && r <= tamilBlockFinish {
			// stray signs and symbols carry no sound of their own
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// inherentVowel returns the vowel that follows a consonant and how many runes
// of rest it used. Two-part signs written in decomposed order are joined.
func inherentVowel(rest []rune) (string, int) {
	if len(rest) == 0 {
		return "a", 0
	}
	next := rest[0]
	if next == tamilVirama {
		return "", 1
	}
	if (next == tamilSignE || next == tamilSignEE) && len(rest) > 1 {
		switch {
		case next == tamilSignE && rest[1] == tamilSignAA:
			return "o", 2
		case next == tamilSignEE && rest[1] == tamilSignAA:
			return "oo", 2
		case next == tamilSignE && rest[1] == tamilLengthMark:
			return "au", 2
		}
	}
	if v, ok := tamilVowelSigns[next]; ok {
		return v, 1
	}
	return "a", 0
}

// HasTamil reports whether s contains any rune from the Tamil block.
func HasTamil(s string) bool {
	for _, r := range s {
		if r >= tamilBlockStart && r <= tamilBlockFinish {
			return true
		}
	}
	return false
}

// HasNonLatin reports whether s contains a letter outside the Latin script.
func HasNonLatin(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) && !unicode.Is(unicode.Latin, r) {
			return true
		}
	}
	return false
}

// MatchKey returns the auxiliary transliterated key for normalized text, or
// the empty string when the text has nothing to transliterate.
func MatchKey(normalized string) string {
	if !HasTamil(normalized) {
		return ""
	}
	return Normalize(Transliterate(normalized))
}
