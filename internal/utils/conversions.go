package utils

import "strings"

// Paginate returns the window [offset, offset+limit) of items, clamped to the slice bounds.
// A non-positive limit returns everything after offset.
func Paginate[T any](items []T, offset, limit int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []T{}
	}
	end := len(items)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return items[offset:end]
}

// NormaliseEmail lower-cases and trims an address so lookups are case-insensitive.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
