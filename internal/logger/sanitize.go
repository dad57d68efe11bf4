package logger

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Length caps for values that end up in log fields. Anything longer is
// truncated with a trailing ellipsis.
const (
	MaxPathLength          = 500
	MaxUserIDLength        = 128
	MaxErrorMessageLength  = 1000
	MaxGeneralStringLength = 2000
)

// SanitizeString makes a string safe to log: invalid UTF-8 is stripped,
// control characters are dropped, and the result is truncated to maxLength.
func SanitizeString(s string, maxLength int) string {
	if s == "" {
		return ""
	}
	if maxLength <= 0 {
		maxLength = MaxGeneralStringLength
	}

	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, "")
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsPrint(r), r == ' ', r == '\t', r == '\n', r == '\r':
			b.WriteRune(r)
		}
	}
	s = b.String()

	if len(s) > maxLength {
		s = s[:maxLength] + "..."
	}
	return s
}

// SanitizePath sanitizes a request path for logging.
func SanitizePath(path string) string {
	return SanitizeString(path, MaxPathLength)
}

// SanitizeUserID sanitizes a user ID for logging. Well-formed IDs are UUIDs
// but the value may echo attacker-controlled header content.
func SanitizeUserID(userID string) string {
	return SanitizeString(userID, MaxUserIDLength)
}

// SanitizeError sanitizes an error message for logging.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return SanitizeString(err.Error(), MaxErrorMessageLength)
}
