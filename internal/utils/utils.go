package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseLimit parses a ?limit= query value. An empty value yields def; any
// value that is not an integer in [1, maxLimit] is an error.
func ParseLimit(raw string, def, maxLimit int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("limit must be an integer, got %q", raw)
	}
	if n < 1 || n > maxLimit {
		return 0, fmt.Errorf("limit must be between 1 and %d", maxLimit)
	}
	return n, nil
}
