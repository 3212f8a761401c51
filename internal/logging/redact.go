package logging

import "strings"

// RedactedValue is the placeholder used for sensitive fields in logs.
const RedactedValue = "[REDACTED]"

// MaskValue keeps the last four characters of value so tokens can still be
// correlated; short or empty values are fully masked or returned unchanged.
func MaskValue(value string) string {
	v := strings.TrimSpace(value)
	if v == "" {
		return value
	}
	if len(v) <= 8 {
		return RedactedValue
	}
	return RedactedValue + v[len(v)-4:]
}
