package textutil

import (
	"strings"
	"unicode"
)

// SanitizeFileName makes name usable as a single path element. Separators,
// colons and asterisks become dashes and the remaining characters that
// Windows rejects are dropped.
func SanitizeFileName(name string) string {
	mapped := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*':
			return '-'
		case '?', '"', '<', '>', '|':
			return -1
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	return strings.TrimSpace(mapped)
}

// SanitizeToken reduces value to lowercase ASCII letters, digits, '-' and
// '_'. Anything else becomes '_'. An empty result is "unknown".
func SanitizeToken(value string) string {
	token := strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z':
			return unicode.ToLower(r)
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, strings.TrimSpace(value))
	if token = strings.Trim(token, "_-"); token == "" {
		return "unknown"
	}
	return token
}
