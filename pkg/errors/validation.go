package errors

import (
	"path/filepath"
	"slices"
	"strings"
	"unicode"
)

// maxLabelLength bounds taxon labels read from outgroup and sampling-time files.
const maxLabelLength = 1024

// ValidateLabel validates a taxon label supplied outside the tree, such as an
// outgroup name or a sampling-time row.
//
// Labels are matched verbatim against leaf names, so the rules only reject
// what can never match a parsed Newick leaf:
//   - No empty labels
//   - No control characters
//   - Maximum length of 1024 bytes
func ValidateLabel(label string) error {
	if label == "" {
		return New(ErrCodeInvalidInput, "label cannot be empty")
	}

	if len(label) > maxLabelLength {
		return New(ErrCodeInvalidInput, "label too long (max %d characters)", maxLabelLength)
	}

	for _, r := range label {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidInput, "label %q contains control characters", label)
		}
	}

	return nil
}

// ValidateOutgroups checks every label of an outgroup list and rejects
// an empty list.
func ValidateOutgroups(labels []string) error {
	if len(labels) == 0 {
		return New(ErrCodeInvalidOutgroup, "outgroup list is empty")
	}
	for _, l := range labels {
		if err := ValidateLabel(l); err != nil {
			return Wrap(ErrCodeInvalidOutgroup, err, "invalid outgroup")
		}
	}
	return nil
}

// ValidateOutputPath validates a path the tool is asked to write to.
//
// Validation rules:
//   - Path cannot be empty
//   - No null bytes or control characters
//   - Must name a file, not a directory
func ValidateOutputPath(path string) error {
	if path == "" {
		return New(ErrCodeInvalidPath, "path cannot be empty")
	}

	for _, r := range path {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.HasSuffix(path, "/") || strings.HasSuffix(path, string(filepath.Separator)) {
		return New(ErrCodeInvalidPath, "path %q names a directory", path)
	}

	return nil
}

// ValidateFormat checks that format is one of allowed (case-sensitive).
func ValidateFormat(format string, allowed ...string) error {
	if !slices.Contains(allowed, format) {
		return New(ErrCodeInvalidFormat, "unsupported format %q (want one of %s)", format, strings.Join(allowed, ", "))
	}
	return nil
}
