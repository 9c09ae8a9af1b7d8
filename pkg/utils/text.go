// Package utils provides shared utilities for text, math, and logging.
package utils

import "unicode/utf8"

// Ellipsis is appended to previews that were cut short.
const Ellipsis = "…"

// Preview returns the first maxRunes runes of s with Ellipsis appended if anything was cut.
// If maxRunes is 0 or negative, returns s unchanged.
func Preview(s string, maxRunes int) string {
	if maxRunes <= 0 || utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	n := 0
	for pos := range s {
		if n == maxRunes {
			return s[:pos] + Ellipsis
		}
		n++
	}
	return s
}

// TailRunes returns the last n runes of s, or all of s when it is not longer than n.
func TailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	total := utf8.RuneCountInString(s)
	if total <= n {
		return s
	}
	skip := total - n
	for pos := range s {
		if skip == 0 {
			return s[pos:]
		}
		skip--
	}
	return ""
}

// RuneLen is the length of s in characters, the unit every size threshold is expressed in.
func RuneLen(s string) int {
	return utf8.RuneCountInString(s)
}
