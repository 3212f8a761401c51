package domain

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

// FieldError represents a single field's validation error.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"message"`
}

func (e FieldError) Error() string { return fmt.Sprintf("%s: %s", e.Field, e.Msg) }

var (
	ErrNotInitialized      = errors.New("sdk not initialized")
	ErrAlreadyInitialized  = errors.New("sdk already initialized")
	ErrEmptyCompanyCode    = errors.New("company code cannot be empty")
	ErrInvalidShortCode    = errors.New("invalid short code")
	ErrEmptyReferral       = errors.New("referring link is empty")
	ErrNoValidIdentifier   = errors.New("no valid affiliate identifier found or attribution expired")
	ErrInsertLinksDisabled = errors.New("insert links is disabled")
)

// IsShortCode reports whether s already looks like a canonical short code:
// 3 to 25 characters, letters and digits only.
func IsShortCode(s string) bool {
	n := len([]rune(s))
	if n < MinShortCodeLen || n > MaxShortCodeLen {
		return false
	}
	return isAlphanumeric(s)
}

// NormalizeShortCode upper-cases code and validates its shape. The returned
// error wraps ErrInvalidShortCode and a FieldError describing the violation.
func NormalizeShortCode(code string) (string, error) {
	upper := strings.ToUpper(code)
	if upper == "" {
		return "", fmt.Errorf("%w: %w", ErrInvalidShortCode, FieldError{"short_code", "required"})
	}
	if n := len([]rune(upper)); n < MinShortCodeLen || n > MaxShortCodeLen {
		return "", fmt.Errorf("%w: %w", ErrInvalidShortCode,
			FieldError{"short_code", fmt.Sprintf("must be between %d and %d characters", MinShortCodeLen, MaxShortCodeLen)})
	}
	if !isAlphanumeric(upper) {
		return "", fmt.Errorf("%w: %w", ErrInvalidShortCode, FieldError{"short_code", "must contain only letters and numbers"})
	}
	return upper, nil
}

// SanitizeOfferCode keeps letters, digits and underscores.
func SanitizeOfferCode(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsOfferCodeMissing reports whether a sanitized offer-code body is actually
// one of the backend's not-found replies.
func IsOfferCodeMissing(sanitized string) bool {
	for _, marker := range []string{"error", "notfound", "Routenotfound"} {
		if strings.Contains(sanitized, marker) {
			return true
		}
	}
	return false
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
