package diagnostics

import (
	"fmt"
	"strconv"
)

// enabledOrDisabled returns string "Enabled" or "Disabled" based on a boolean.
func enabledOrDisabled(v bool) string {
	if v {
		return "Enabled"
	}

	return "Disabled"
}

// parsePackID parses a pack registry id path variable.
func parsePackID(s string) (int, error) {
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid pack id %q: %w", s, err)
	}

	return id, nil
}
