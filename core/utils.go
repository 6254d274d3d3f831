package core

import "strings"

// CleanString normalizes free-text input (names, reasons); surrounding
// whitespace is dropped and the result optionally lowercased.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}
