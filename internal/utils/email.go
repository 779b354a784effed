package utils

import (
	"net/mail"
	"strings"
)

// NormalizeEmail lowercases and trims an address so allow-list lookups are
// case-insensitive on the local part as well as the domain.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ExtractAddress pulls the bare address out of a From/To header value,
// handling the "Name <email@domain.com>" form.
func ExtractAddress(header string) string {
	addr, err := mail.ParseAddress(header)
	if err != nil {
		return strings.TrimSpace(header)
	}
	return addr.Address
}

func ExtractDomainFromEmail(email string) string {
	if email == "" {
		return ""
	}

	email = ExtractAddress(email)

	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return ""
	}

	return strings.ToLower(strings.TrimSpace(parts[1]))
}
