package pool

import (
	"regexp"
	"strings"
)

// Provider invite codes are 6 alphanumeric characters.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{6}$`)

// NormalizeCode strips whitespace and upcases a user-submitted code.
func NormalizeCode(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// ValidCode reports whether a normalized code is well-formed.
func ValidCode(code string) bool {
	return codePattern.MatchString(code)
}
