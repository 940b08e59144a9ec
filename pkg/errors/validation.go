package errors

import (
	"strings"
	"unicode"
)

// ValidateName validates a gene set, library or background name.
// Names end up in output directory and file names, so the rules reject
// anything that could escape the output directory:
//   - No empty names
//   - No control characters
//   - No path separators or traversal sequences
//   - Maximum length of 256 characters
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidName, "name cannot be empty")
	}

	if len(name) > 256 {
		return New(ErrCodeInvalidName, "name too long (max 256 characters)")
	}

	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidName, "name contains invalid control characters")
		}
	}

	for _, pattern := range []string{"..", "/", "\\", "\x00"} {
		if strings.Contains(name, pattern) {
			return New(ErrCodeInvalidName, "name contains invalid characters: %q", pattern)
		}
	}

	return nil
}

// ValidateGeneID validates a single normalized gene identifier.
// Identifiers are uppercase tokens without whitespace.
func ValidateGeneID(id string) error {
	if id == "" {
		return New(ErrCodeInvalidGeneSet, "gene identifier cannot be empty")
	}
	if len(id) > 64 {
		return New(ErrCodeInvalidGeneSet, "gene identifier too long: %q", id)
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return New(ErrCodeInvalidGeneSet, "gene identifier contains whitespace: %q", id)
		}
		if unicode.IsLower(r) {
			return New(ErrCodeInvalidGeneSet, "gene identifier is not normalized: %q", id)
		}
	}
	return nil
}

// ValidatePath validates a relative file path, such as a library file listed
// in a catalog.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No path traversal sequences (..)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	return nil
}
