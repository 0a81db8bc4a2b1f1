// Package strcase converts Go identifiers into the snake_case keys used in
// API error payloads.
package strcase

import (
	"strings"
	"unicode"
)

// ToLowerSnake splits s into words and joins them with underscores.
// Initialisms stay together: "RecordID" becomes "record_id" and
// "HTTPServer" becomes "http_server".
func ToLowerSnake(s string) string {
	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s) + 4)

	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) && startsWord(runes, i) {
			b.WriteByte('_')
		}
		b.WriteRune(unicode.ToLower(r))
	}

	return b.String()
}

// startsWord reports whether the upper-case rune at i opens a new word.
func startsWord(runes []rune, i int) bool {
	prev := runes[i-1]
	if unicode.IsLower(prev) || unicode.IsDigit(prev) {
		return true
	}

	return unicode.IsUpper(prev) && i+1 < len(runes) && unicode.IsLower(runes[i+1])
}
