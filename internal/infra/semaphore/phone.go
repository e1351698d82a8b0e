package semaphore

import (
	"strings"
	"unicode"
)

// NormalizePhone turns a customer-typed number into the digits-only,
// country-coded form the provider expects, e.g. "0917 123 4567" with country
// code "63" becomes "639171234567".
func NormalizePhone(raw, countryCode string) string {
	s := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '-' || r == '(' || r == ')' {
			return -1
		}
		return r
	}, raw)
	if s == "" {
		return ""
	}

	if strings.HasPrefix(s, "0") {
		s = countryCode + s[1:]
	}
	if !strings.HasPrefix(s, countryCode) && !strings.HasPrefix(s, "+"+countryCode) {
		s = countryCode + s
	}
	return strings.Replace(s, "+", "", 1)
}
