package util

import (
	"strconv"
)

// ParseID parses a positive path id.
func ParseID(field, s string) (uint, error) {
	id, err := strconv.ParseUint(s, 10, 32)
	if err != nil || id == 0 {
		return 0, NewValidationError(field, "must be a positive integer")
	}
	return uint(id), nil
}
