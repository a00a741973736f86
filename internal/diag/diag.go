// Package diag defines the structured warning records emitted by the
// reconciler's diagnostic channel.
package diag

import "fmt"

// Code identifies a diagnostic category.
type Code string

const (
	// CodeDuplicateKey reports duplicate keys in one source update.
	// Non-fatal: the first occurrence wins, the rest are skipped.
	CodeDuplicateKey Code = "W001"

	// CodeIncomparableKey reports a key whose type cannot be used in a
	// map; the reconciler substitutes a positional key for that update.
	CodeIncomparableKey Code = "W002"
)

// Warning is a structured, non-fatal diagnostic record.
type Warning struct {
	Code    Code
	Message string
	Hint    string
}

// String renders the warning in the "[CODE] message (hint)" form.
func (w Warning) String() string {
	if w.Hint == "" {
		return fmt.Sprintf("[%s] %s", w.Code, w.Message)
	}
	return fmt.Sprintf("[%s] %s (%s)", w.Code, w.Message, w.Hint)
}

// DuplicateKey builds the per-update duplicate key warning.
func DuplicateKey(firstKey any, count int) Warning {
	return Warning{
		Code:    CodeDuplicateKey,
		Message: fmt.Sprintf("%d duplicate key(s) in update, first offender %v", count, firstKey),
		Hint:    "first occurrence wins; later items with the same key are skipped",
	}
}

// IncomparableKey builds the incomparable-key warning.
func IncomparableKey(index int) Warning {
	return Warning{
		Code:    CodeIncomparableKey,
		Message: fmt.Sprintf("key at index %d has an incomparable type", index),
		Hint:    "falling back to a positional key for this update",
	}
}
