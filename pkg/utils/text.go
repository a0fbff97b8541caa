// Package utils provides shared utilities for text, math, and logging.
package utils

import "unicode/utf8"

// Truncate returns s truncated to at most maxLen bytes, with "..." appended if
// truncated. The cut backs off to the nearest rune boundary so the result is
// always valid UTF-8. If maxLen is 0 or negative, returns s unchanged.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:runeBoundary(s, maxLen)] + "..."
}

// TruncateMarker returns s truncated to at most maxLen bytes with marker appended
// when truncation occurred. The marker is appended after the cut, so the result may
// exceed maxLen by len(marker). If maxLen is 0 or negative, returns s unchanged.
func TruncateMarker(s string, maxLen int, marker string) string {
	if maxLen <= 0 || len(s) <= maxLen {
		return s
	}
	return s[:runeBoundary(s, maxLen)] + marker
}

// runeBoundary backs n off until s[:n] does not end mid-rune. Caller guarantees
// 0 < n < len(s).
func runeBoundary(s string, n int) int {
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return n
}
