package pagination

import (
	"strconv"
)

// Defaults and bounds for limit/offset paging
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// Params holds parsed limit/offset query parameters
type Params struct {
	Limit  int
	Offset int
}

// Parse parses limit and offset from query strings, clamping to sane bounds.
// Invalid or missing values fall back to defaults rather than erroring.
func Parse(limitStr, offsetStr string) Params {
	limit := DefaultLimit
	if limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset := 0
	if offsetStr != "" {
		if n, err := strconv.Atoi(offsetStr); err == nil && n > 0 {
			offset = n
		}
	}

	return Params{Limit: limit, Offset: offset}
}

// Clamp normalizes raw limit/offset values coming from non-HTTP callers
func Clamp(limit, offset int) Params {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return Params{Limit: limit, Offset: offset}
}
