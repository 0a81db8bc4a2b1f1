// Package mask renders identifiers safe for display and logs.
//
// The functions are pure and tolerate malformed input: they never fail and
// never return the original value unless it is empty.
package mask

import (
	"strings"
	"unicode/utf8"
)

const (
	maskRune  = '*'
	emailFill = "***"
)

// Email keeps the first and last rune of the local part and the whole domain.
//
//	"john.doe@example.com" -> "j***e@example.com"
//	"ab@example.com"       -> "a*@example.com"
//	"a@example.com"        -> "*@example.com"
//
// Input without a usable "local@domain" shape is masked with the Phone rule.
func Email(s string) string {
	at := strings.LastIndexByte(s, '@')
	if at <= 0 || at == len(s)-1 {
		return Phone(s)
	}

	local, domain := []rune(s[:at]), s[at:]
	switch len(local) {
	case 1:
		return string(maskRune) + domain
	case 2:
		return string(local[0]) + string(maskRune) + domain
	default:
		return string(local[0]) + emailFill + string(local[len(local)-1]) + domain
	}
}

// Phone keeps the first two and last two runes and masks the rest, preserving length.
// Values of four runes or fewer are masked completely.
//
//	"+628123456789" -> "+6*********89"
func Phone(s string) string {
	n := utf8.RuneCountInString(s)
	if n == 0 {
		return ""
	}
	if n <= 4 {
		return strings.Repeat(string(maskRune), n)
	}

	runes := []rune(s)
	var b strings.Builder
	b.Grow(len(s))
	b.WriteString(string(runes[:2]))
	b.WriteString(strings.Repeat(string(maskRune), n-4))
	b.WriteString(string(runes[n-2:]))
	return b.String()
}

// Identifier picks Email for values containing '@' and Phone otherwise.
func Identifier(s string) string {
	if strings.ContainsRune(s, '@') {
		return Email(s)
	}
	return Phone(s)
}
