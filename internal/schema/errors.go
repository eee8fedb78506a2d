package schema

import (
	"fmt"
	"strings"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
)

// SchemaNotFoundError is returned when none of the requested issue type
// names exist in the project.
type SchemaNotFoundError struct {
	ProjectKey string
	IssueType  string
	// Tried lists the names looked up, in order, including fallbacks.
	Tried []string
	// Available lists what the project does offer.
	Available []string
}

func (e *SchemaNotFoundError) Error() string {
	msg := fmt.Sprintf("issue type %q not available in project %s", e.IssueType, e.ProjectKey)
	if len(e.Tried) > 1 {
		msg += fmt.Sprintf(" (tried %s)", strings.Join(e.Tried, ", "))
	}
	if len(e.Available) > 0 {
		msg += fmt.Sprintf("; available: %s", strings.Join(e.Available, ", "))
	}
	return msg
}

// Code implements errors.Coder.
func (e *SchemaNotFoundError) Code() berrors.ErrorCode {
	return berrors.ErrCodeSchemaNotFound
}
