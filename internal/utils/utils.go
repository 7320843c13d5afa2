package utils

import (
	"strings"
	"unicode/utf8"
)

// ExcerptLength is how many characters of content make an excerpt
const ExcerptLength = 150

// DeriveExcerpt returns the first ExcerptLength characters of content,
// followed by "..." when content is longer than that.
func DeriveExcerpt(content string) string {
	if utf8.RuneCountInString(content) <= ExcerptLength {
		return strings.TrimSpace(content)
	}
	runes := []rune(content)
	return strings.TrimSpace(string(runes[:ExcerptLength])) + "..."
}

// NormalizeEmail makes emails usable as a case insensitive lookup key
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// ValidEmail is the login check: the address must contain "@"
func ValidEmail(email string) bool {
	local, domain, ok := strings.Cut(email, "@")
	return ok && local != "" && domain != ""
}

// SplitEmail derives a username from the local part and an organization
// from the first label of the domain ("alice@example.com" -> alice, example).
func SplitEmail(email string) (username, organization string) {
	local, domain, _ := strings.Cut(email, "@")
	organization, _, _ = strings.Cut(domain, ".")
	return local, organization
}
