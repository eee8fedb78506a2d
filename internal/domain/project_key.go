package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// projectKeyPattern matches tracker project keys: an uppercase letter followed
// by uppercase letters, digits or underscores.
var projectKeyPattern = regexp.MustCompile(`^[A-Z][A-Z0-9_]+$`)

// NormalizeProjectKey uppercases and trims a project key.
func NormalizeProjectKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// ValidateProjectKey checks an already normalized project key.
func ValidateProjectKey(key string) error {
	if key == "" {
		return fmt.Errorf("project key cannot be empty")
	}
	if !projectKeyPattern.MatchString(key) {
		return fmt.Errorf("project key %q must start with a letter and contain only letters, digits and underscores", key)
	}
	return nil
}
