// Package email checks the syntax of partner-supplied addresses.
package email

import (
	"net/mail"
	"strings"
)

const maxLen = 254

// Valid reports whether s is a bare addr-spec such as "ada@example.com".
// Display names, angle brackets and dotless domains are rejected.
func Valid(s string) bool {
	if s == "" || len(s) > maxLen || strings.TrimSpace(s) != s {
		return false
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || addr.Name != "" {
		return false
	}
	at := strings.LastIndexByte(s, '@')
	domain := s[at+1:]
	return strings.Contains(domain, ".") && !strings.HasPrefix(domain, ".") && !strings.HasSuffix(domain, ".")
}
