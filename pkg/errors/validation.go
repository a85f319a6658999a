package errors

import (
	"regexp"
	"strings"
	"unicode"
)

// ValidateFilename validates a plain file name (font, image or text file).
// It ensures the name is a simple basename without path components.
func ValidateFilename(filename string) error {
	if filename == "" {
		return New(ErrCodeInvalidPath, "filename cannot be empty")
	}

	if len(filename) > 255 {
		return New(ErrCodeInvalidPath, "filename too long (max 255 characters)")
	}

	// Must be a simple filename, not a path
	if strings.ContainsAny(filename, "/\\") {
		return New(ErrCodeInvalidPath, "filename cannot contain path separators")
	}

	if filename == "." || filename == ".." {
		return New(ErrCodeInvalidPath, "filename cannot be %q", filename)
	}

	for _, r := range filename {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "filename contains invalid control characters")
		}
	}

	return nil
}

// ValidatePath validates a relative file path for safety.
// It prevents path traversal attacks and ensures reasonable path length.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
//   - No absolute paths (must be relative)
//   - No path traversal sequences (..)
//   - No backslashes (Windows-style paths)
func ValidatePath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	const maxPathLength = 500
	if len(path) > maxPathLength {
		return New(ErrCodeInvalidPath, "path too long (max %d characters)", maxPathLength)
	}

	// Check for null bytes and control characters
	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	// Must not be absolute path
	if strings.HasPrefix(path, "/") {
		return New(ErrCodeInvalidPath, "path must be relative (cannot start with /)")
	}

	// Check for path traversal
	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	// No backslashes (potential Windows path injection)
	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}

// fontNameRegex matches font names: a builtin name or a font file basename.
var fontNameRegex = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._ -]*$`)

// ValidateFontName validates a font name given on the command line or in a
// request body.
func ValidateFontName(name string) error {
	if err := ValidateFilename(name); err != nil {
		return Wrap(ErrCodeInvalidFont, err, "invalid font name %q", name)
	}
	if !fontNameRegex.MatchString(name) {
		return New(ErrCodeInvalidFont, "invalid font name: %q", name)
	}
	return nil
}

// ValidateURI validates a backend connection string against allowed schemes,
// e.g. "redis", "rediss" or "mongodb".
func ValidateURI(raw string, schemes ...string) error {
	if raw == "" {
		return New(ErrCodeInvalidInput, "URI cannot be empty")
	}

	// Simple scheme validation without full URL parsing
	for _, s := range schemes {
		if strings.HasPrefix(raw, s+"://") {
			return nil
		}
	}
	return New(ErrCodeInvalidInput, "URI must use one of the schemes %v", schemes)
}

// ValidateText validates one source text of a mosaic.
func ValidateText(text string, maxBytes int) error {
	if strings.TrimSpace(text) == "" {
		return New(ErrCodeEmptyWord, "text has no words")
	}
	if maxBytes > 0 && len(text) > maxBytes {
		return New(ErrCodeInvalidInput, "text too long (max %d bytes)", maxBytes)
	}
	return nil
}
