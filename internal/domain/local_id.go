package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// maxLocalIDLength is the maximum allowed length for a local ID
const maxLocalIDLength = 100

// ValidateLocalID checks a plan-local node identifier. IDs are opaque to the
// tracker, so only emptiness, length and whitespace are constrained.
func ValidateLocalID(id string) error {
	if id == "" {
		return fmt.Errorf("local ID cannot be empty")
	}
	if len(id) > maxLocalIDLength {
		return fmt.Errorf("local ID %q exceeds maximum length of %d characters", id, maxLocalIDLength)
	}
	if strings.IndexFunc(id, unicode.IsSpace) >= 0 {
		return fmt.Errorf("local ID %q cannot contain whitespace", id)
	}
	return nil
}
