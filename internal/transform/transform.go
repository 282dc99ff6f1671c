// Package transform provides per-field value normalization applied between
// the file reader and the sink writer. Each Func is pure and stateless, so a
// compiled plan can be shared across every row of a transfer.
//
// Funcs never reject a value: anything they cannot interpret is passed
// through as text, which every sink column representation can carry. Blank
// fields become NULL.
package transform

import (
	"strconv"
	"strings"
)

// Func converts one raw field string into the value handed to the sink.
// A nil result means SQL NULL.
type Func func(raw string) any

// Identity trims trailing padding and maps blank to NULL; the value is
// otherwise unchanged. This is the documented default for unrecognized
// source types.
func Identity(raw string) any {
	s := strings.TrimRight(raw, " ")
	if s == "" {
		return nil
	}
	return s
}

// Character trims the fixed-width space padding of C fields.
func Character(raw string) any {
	return Identity(raw)
}

// Logical decodes dBASE logical fields. '?' and blank mean uninitialized and
// become NULL; unknown markers pass through as text.
func Logical(raw string) any {
	switch strings.TrimSpace(raw) {
	case "", "?":
		return nil
	case "T", "t", "Y", "y":
		return true
	case "F", "f", "N", "n":
		return false
	}
	return strings.TrimSpace(raw)
}

// Date reformats the on-disk YYYYMMDD form into ISO 8601 (YYYY-MM-DD).
// Blank dates become NULL; anything that is not eight digits passes through.
func Date(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if len(s) != 8 || !allDigits(s) {
		return s
	}
	var b strings.Builder
	b.Grow(10)
	b.WriteString(s[0:4])
	b.WriteByte('-')
	b.WriteString(s[4:6])
	b.WriteByte('-')
	b.WriteString(s[6:8])
	return b.String()
}

// Integer parses whole-number N fields. dBASE right-aligns numerics, so the
// raw value is space-padded on the left.
func Integer(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseInt(s, 10, 64); err == nil {
		return v
	}
	return s
}

// Float parses N fields with decimals and F fields.
func Float(raw string) any {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v
	}
	return s
}

// allDigits reports whether s consists only of ASCII digits.
func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
