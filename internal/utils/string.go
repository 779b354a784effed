package utils

import "strings"

// IsASCII reports whether s contains only 7-bit characters. Object-storage
// metadata values must be ASCII-safe.
func IsASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

// SanitizeASCII replaces every non-ASCII rune with '?'.
func SanitizeASCII(s string) string {
	if IsASCII(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r > 127 {
			b.WriteByte('?')
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func StringPtr(s string) *string {
	return &s
}

func StringOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
