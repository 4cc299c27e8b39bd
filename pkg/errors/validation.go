package errors

import (
	"math"
	"strings"
	"unicode"
)

// ValidateProbability checks that v is a finite value in [0, 1].
// field names the offending column in the returned error.
func ValidateProbability(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return New(ErrCodeOutOfDomain, "%s is not a finite number", field)
	}
	if v < 0 || v > 1 {
		return New(ErrCodeOutOfDomain, "%s must be in [0, 1], got %g", field, v)
	}
	return nil
}

// ValidateInterval checks a risk estimate and its confidence interval.
//
// All three values must be probabilities and the interval must not be inverted.
// The mean is allowed to sit outside [low, high]; such records come from
// upstream models and are rendered as-is.
func ValidateInterval(mean, low, high float64) error {
	if err := ValidateProbability("risk_mean", mean); err != nil {
		return err
	}
	if err := ValidateProbability("ci_low", low); err != nil {
		return err
	}
	if err := ValidateProbability("ci_high", high); err != nil {
		return err
	}
	if high < low {
		return New(ErrCodeInvalidRange, "ci_high (%g) is below ci_low (%g)", high, low)
	}
	return nil
}

// ValidateFeatureName validates an attribution feature name.
//
// Names end up as SVG text and cache key parts, so control characters and
// overly long names are rejected:
//   - No empty names
//   - No control characters
//   - Maximum length of 128 characters
func ValidateFeatureName(name string) error {
	if strings.TrimSpace(name) == "" {
		return New(ErrCodeInvalidRecord, "feature name cannot be empty")
	}
	if len(name) > 128 {
		return New(ErrCodeInvalidRecord, "feature name too long (max 128 characters)")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidRecord, "feature name contains invalid control characters")
		}
	}
	return nil
}

// ValidatePath validates an output path component for safety.
// It prevents path traversal when case labels are used to build file names.
//
// Validation rules:
//   - Path cannot be empty
//   - Maximum length of 500 characters
//   - No null bytes or control characters
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

	for _, r := range path {
		if r == '\x00' || unicode.IsControl(r) {
			return New(ErrCodeInvalidPath, "path contains invalid characters")
		}
	}

	if strings.Contains(path, "..") {
		return New(ErrCodeInvalidPath, "path cannot contain path traversal sequences (..)")
	}

	if strings.Contains(path, "\\") {
		return New(ErrCodeInvalidPath, "path cannot contain backslashes")
	}

	return nil
}
