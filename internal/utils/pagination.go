// Package utils holds the parsing helpers behind the list endpoints'
// page/page_size query handling. The handlers never reject a malformed
// paging param; they fall back to defaults and clamp to bounds so a
// storefront with a buggy pager still gets a valid first page.
package utils

import "strconv"

// AtoiDefault parses s as a base-10 int, returning def when s is empty
// or unparseable. No trimming: " 42" is unparseable on purpose, since
// query params arrive already unescaped.
func AtoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// Clamp bounds v to [lo, hi]. Used to keep page >= 1 and page_size
// within the per-request maximum.
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
