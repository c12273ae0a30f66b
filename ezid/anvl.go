// Package ezid is a minimal client for the EZID identifier service.
// It speaks the ANVL request/response format and supports the create,
// mint, and update operations used by batch registration.
package ezid

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormatANVL renders an element map in ANVL form, one "key: value"
// line per element, sorted by key. Keys escape percent, colon, CR, and
// LF; values escape percent, CR, and LF.
func FormatANVL(elements map[string]string) string {
	keys := make([]string, 0, len(elements))
	for k := range elements {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		b.WriteString(escapeANVL(k, true))
		b.WriteString(": ")
		b.WriteString(escapeANVL(elements[k], false))
		b.WriteString("\n")
	}
	return b.String()
}

// ParseANVL decodes an ANVL response body into a map. Lines without a
// colon and entries with an empty key or value are skipped, matching
// how EZID responses are consumed.
func ParseANVL(s string) map[string]string {
	elements := make(map[string]string)
	for _, line := range strings.Split(s, "\n") {
		k, v, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key := strings.TrimSpace(unescapeANVL(strings.TrimSpace(k)))
		value := strings.TrimSpace(unescapeANVL(strings.TrimSpace(v)))
		if key != "" && value != "" {
			elements[key] = value
		}
	}
	return elements
}

func escapeANVL(s string, colonToo bool) string {
	var b strings.Builder
	for _, c := range []byte(s) {
		switch {
		case c == '%' || c == '\r' || c == '\n' || (colonToo && c == ':'):
			fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func unescapeANVL(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] == '%' && i+2 < len(s) {
			if n, err := strconv.ParseUint(s[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(n))
				i += 2
				continue
			}
		}
		b.WriteByte(s[i])
	}
	return b.String()
}
