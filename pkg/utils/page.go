package utils

// Offset turns a zero-based page and a page size into a row offset.
func Offset(page, size int) int {
	if page < 0 || size <= 0 {
		return 0
	}
	return page * size
}

// ClampSize keeps size inside [1, max], falling back to def for non-positive input.
func ClampSize(size, def, max int) int {
	if size <= 0 {
		return def
	}
	if size > max {
		return max
	}
	return size
}
