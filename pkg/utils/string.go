package utils

import (
	"strings"
	"unicode"
)

// MaxContentLength caps relayed message content.
const MaxContentLength = 16 * 1024

// SanitizeContent strips control characters and trims whitespace from
// message content, then truncates it to MaxContentLength.
func SanitizeContent(s string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	s = strings.TrimSpace(s)

	if len(s) > MaxContentLength {
		s = s[:MaxContentLength]
	}
	return s
}

// TruncateString truncates a string to max length
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// IsEmpty checks if string is empty or only whitespace
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}
