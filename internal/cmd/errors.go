package cmd

import "fmt"

// UsageError reports a command invoked the wrong way. It maps to the usage
// exit code.
type UsageError struct {
	Message string
}

func (e *UsageError) Error() string {
	return e.Message
}

// ExitCategory lets exitcode classify the error without a domain code.
func (e *UsageError) ExitCategory() string {
	return "usage"
}

func usageError(format string, args ...any) error {
	return &UsageError{Message: fmt.Sprintf(format, args...)}
}
