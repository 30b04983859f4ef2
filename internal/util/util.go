// Package util provides common utility functions used across the route editor.
package util

import (
	"fmt"
	"strings"
)

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// ParseStringArray parses a bracketed array of quoted strings as sent
// over the bridge. Input format: ["str1","str2",...]. Returns false
// when the input is not a bracketed array.
func ParseStringArray(s string) ([]string, bool) {
	s = strings.TrimSpace(s)
	if len(s) < 2 || s[0] != '[' || s[len(s)-1] != ']' {
		return nil, false
	}

	inner := s[1 : len(s)-1]
	if strings.TrimSpace(inner) == "" {
		return []string{}, true
	}

	parts := strings.Split(inner, `","`)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		out = append(out, FixEscapeQuotes(strings.Trim(p, `"`)))
	}
	return out, true
}

// FormatDistance renders a distance in meters for display, switching
// to kilometers at 1000 m.
func FormatDistance(meters float64) string {
	if meters < 1000 {
		return fmt.Sprintf("%.0f m", meters)
	}
	return fmt.Sprintf("%.1f km", meters/1000)
}

// FormatRouteLabel builds a display string for a route badge.
// Format: "Name (1.2 km)" with an empty name omitted.
func FormatRouteLabel(name string, meters float64) string {
	var b strings.Builder
	if name != "" {
		b.WriteString(name)
		b.WriteByte(' ')
	}
	b.WriteByte('(')
	b.WriteString(FormatDistance(meters))
	b.WriteByte(')')
	return b.String()
}
