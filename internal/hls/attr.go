// Package hls holds pure value types parsed from HLS tag syntax (RFC 8216).
package hls

import "strings"

// SplitAttributes splits an attribute-list tag payload on commas that sit
// outside double quotes. Pieces keep their original order and case so a
// rewriter can re-emit unrecognized attributes verbatim.
func SplitAttributes(s string) []string {
	var attrs []string
	start := 0
	inQuotes := false

	for i, c := range s {
		switch c {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				attrs = append(attrs, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if start < len(s) {
		attrs = append(attrs, strings.TrimSpace(s[start:]))
	}
	return attrs
}

// splitAttr splits a single KEY=VALUE attribute, unquoting the value.
// ok is false when there is no '='.
func splitAttr(attr string) (key, value string, ok bool) {
	key, value, ok = strings.Cut(attr, "=")
	if !ok {
		return "", "", false
	}
	key = strings.ToUpper(strings.TrimSpace(key))
	value = strings.Trim(strings.TrimSpace(value), `"`)
	return key, value, true
}
