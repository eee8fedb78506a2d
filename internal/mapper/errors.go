package mapper

import (
	"fmt"
	"strings"

	berrors "github.com/felixgeelhaar/backlog/internal/errors"
	"github.com/felixgeelhaar/backlog/internal/schema"
)

// MissingRequiredFieldsError names every required field the content did not
// supply.
type MissingRequiredFieldsError struct {
	Kind string
	// Fields are canonical field names, sorted.
	Fields    []string
	RemoteIDs []string
}

func newMissingRequiredFieldsError(kind string, specs []schema.FieldSpec) *MissingRequiredFieldsError {
	e := &MissingRequiredFieldsError{Kind: kind}
	for _, s := range specs {
		e.Fields = append(e.Fields, s.Canonical())
		e.RemoteIDs = append(e.RemoteIDs, s.RemoteID)
	}
	return e
}

func (e *MissingRequiredFieldsError) Error() string {
	return fmt.Sprintf("%s is missing required fields: %s", e.Kind, strings.Join(e.Fields, ", "))
}

// Code implements errors.Coder.
func (e *MissingRequiredFieldsError) Code() berrors.ErrorCode {
	return berrors.ErrCodeMissingRequired
}

// FieldProblem is one value rejected by strict type checking.
type FieldProblem struct {
	Field    string
	RemoteID string
	Reason   string
}

// InvalidFieldValuesError lists every value that does not fit its field.
type InvalidFieldValuesError struct {
	Kind     string
	Problems []FieldProblem
}

func (e *InvalidFieldValuesError) Error() string {
	parts := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		parts[i] = fmt.Sprintf("%s (%s): %s", p.Field, p.RemoteID, p.Reason)
	}
	return fmt.Sprintf("%s has invalid field values: %s", e.Kind, strings.Join(parts, "; "))
}

// Code implements errors.Coder.
func (e *InvalidFieldValuesError) Code() berrors.ErrorCode {
	return berrors.ErrCodeInvalidValue
}
