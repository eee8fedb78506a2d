package domain

import (
	"fmt"
	"strings"
)

// Priority is a tracker priority label such as "High".
type Priority string

// Standard tracker priority labels, most urgent first.
const (
	PriorityHighest Priority = "Highest"
	PriorityHigh    Priority = "High"
	PriorityMedium  Priority = "Medium"
	PriorityLow     Priority = "Low"
	PriorityLowest  Priority = "Lowest"
)

// StandardPriorities lists the labels every default tracker scheme offers.
var StandardPriorities = []Priority{
	PriorityHighest, PriorityHigh, PriorityMedium, PriorityLow, PriorityLowest,
}

// NewPriority validates value against allowed, matching case-insensitively,
// and returns the allowed spelling. An empty allowed list accepts any
// non-blank label.
func NewPriority(value string, allowed ...Priority) (Priority, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "", fmt.Errorf("priority cannot be empty")
	}
	if len(allowed) == 0 {
		return Priority(trimmed), nil
	}
	for _, a := range allowed {
		if strings.EqualFold(string(a), trimmed) {
			return a, nil
		}
	}
	names := make([]string, len(allowed))
	for i, a := range allowed {
		names[i] = string(a)
	}
	return "", fmt.Errorf("invalid priority %q: must be one of %s", value, strings.Join(names, ", "))
}

// String returns the string representation
func (p Priority) String() string {
	return string(p)
}

// IsHigherThan reports whether p is more urgent than other on the standard
// scale. Labels outside the scale rank below Lowest.
func (p Priority) IsHigherThan(other Priority) bool {
	return priorityRank(p) > priorityRank(other)
}

func priorityRank(p Priority) int {
	for i, s := range StandardPriorities {
		if strings.EqualFold(string(s), string(p)) {
			return len(StandardPriorities) - i
		}
	}
	return 0
}
