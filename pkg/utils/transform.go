package utils

import (
	"strings"
)

// Dedup removes repeated entries, ignoring trailing slashes, preserving order.
func Dedup(in []string) []string {
	seen := map[string]bool{}
	out := []string{}
	for _, e := range in {
		e = strings.TrimRight(e, "/")
		if !seen[e] {
			seen[e] = true
			out = append(out, e)
		}
	}
	return out
}

// Lower lowercases and trims every entry.
func Lower(in []string) []string {
	out := make([]string, len(in))
	for i, e := range in {
		out[i] = strings.ToLower(strings.TrimSpace(e))
	}
	return out
}

// Chunk splits in into consecutive slices of at most size elements.
func Chunk[T any](in []T, size int) [][]T {
	if size <= 0 || len(in) == 0 {
		return nil
	}
	out := make([][]T, 0, (len(in)+size-1)/size)
	for start := 0; start < len(in); start += size {
		end := start + size
		if end > len(in) {
			end = len(in)
		}
		out = append(out, in[start:end])
	}
	return out
}
