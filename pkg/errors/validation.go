package errors

import (
	"strings"
	"unicode"
)

// maxIdentifierLen bounds identifiers accepted from API paths.
const maxIdentifierLen = 256

// ValidateIdentifier validates a package identifier taken from user input.
// It rejects names that could be used for key injection or path traversal.
//
// The rules are conservative:
//   - No empty identifiers
//   - No control characters or whitespace
//   - No empty, "." or ".." path segments, and no backslashes
//   - No glob metacharacters, which have meaning in store key scans
//   - Maximum length of 256 characters
func ValidateIdentifier(identifier string) error {
	if identifier == "" {
		return New(ErrCodeInvalidIdentifier, "identifier cannot be empty")
	}
	if len(identifier) > maxIdentifierLen {
		return New(ErrCodeInvalidIdentifier, "identifier too long (max %d characters)", maxIdentifierLen)
	}

	for _, r := range identifier {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return New(ErrCodeInvalidIdentifier, "identifier contains invalid characters")
		}
	}

	for _, pattern := range []string{"\\", "*", "?", "[", "]"} {
		if strings.Contains(identifier, pattern) {
			return New(ErrCodeInvalidIdentifier, "identifier contains invalid characters: %q", pattern)
		}
	}

	// Dots inside a name ("my..lib") are legal on GitHub; only whole
	// segments are traversal.
	for _, seg := range strings.Split(identifier, "/") {
		switch seg {
		case "":
			return New(ErrCodeInvalidIdentifier, "identifier contains an empty path segment")
		case ".", "..":
			return New(ErrCodeInvalidIdentifier, "identifier contains invalid path segment: %q", seg)
		}
	}
	return nil
}

// ValidateQuery validates a free-text list query.
func ValidateQuery(q string) error {
	if len(q) > maxIdentifierLen {
		return New(ErrCodeInvalidInput, "query too long (max %d characters)", maxIdentifierLen)
	}
	for _, r := range q {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "query contains invalid control characters")
		}
	}
	return nil
}
