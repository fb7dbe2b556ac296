package common

import "strings"

// SplitList splits a comma-separated list, trimming spaces and dropping
// empty items, so both "a,b" and "a, b" parse the same.
func SplitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
